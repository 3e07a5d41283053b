// Package public maintains the group of handlers for public access to the
// simulator.
package public

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/chainsim/business/web/errs"
	"github.com/ardanlabs/chainsim/foundation/events"
	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
	"github.com/ardanlabs/chainsim/foundation/simulator/network"
	"github.com/ardanlabs/chainsim/foundation/simulator/worker"
	"github.com/ardanlabs/chainsim/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of simulator endpoints.
type Handlers struct {
	Log       *zap.SugaredLogger
	Network   *network.Network
	Evts      *events.Hub
	EvHandler ledger.EventHandler
	WS        websocket.Upgrader
}

// Genesis returns the settings the network runs under.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Network.Genesis(), http.StatusOK)
}

// Nodes returns the node registry with the state of each replica.
func (h Handlers) Nodes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	nodes := h.Network.Nodes()

	resp := make([]node, len(nodes))
	for i, n := range nodes {
		resp[i] = node{
			ID:         n.ID,
			Mining:     n.IsMining(),
			Malicious:  n.IsMalicious(),
			Active:     n.IsActive(),
			BlockCount: n.Chain.BlockCount(),
			TipHash:    n.Chain.LastBlock().Hash,
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AddNode registers a new node and starts its worker.
func (h Handlers) AddNode(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req addNodeRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	n, err := h.Network.AddNode(req.Mining, req.Malicious)
	if err != nil {
		if errors.Is(err, network.ErrNetworkFull) {
			return errs.New(errs.KindRegistryFull, err)
		}
		return err
	}

	worker.Run(h.Network, n, h.EvHandler)

	resp := struct {
		ID int `json:"id"`
	}{
		ID: n.ID,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// StopNode deactivates a node and joins its worker. Unknown ids are
// ignored, matching the driver contract.
func (h Handlers) StopNode(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := nodeParam(r)
	if err != nil {
		return err
	}

	h.Network.StopNode(id)

	return web.Respond(ctx, w, statusResponse("node stopped"), http.StatusOK)
}

// StartNode reactivates a node, restarts its worker and synchronizes its
// chain. Unknown ids are ignored.
func (h Handlers) StartNode(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := nodeParam(r)
	if err != nil {
		return err
	}

	h.Network.StartNode(id)

	return web.Respond(ctx, w, statusResponse("node started"), http.StatusOK)
}

// Chain enumerates the committed blocks and the scratchpad of a node's
// replica.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := h.lookupNode(r)
	if err != nil {
		return err
	}

	blocks := n.Chain.Blocks()

	resp := struct {
		BlockCount int     `json:"block_count"`
		Blocks     []block `json:"blocks"`
		Pending    block   `json:"pending"`
	}{
		BlockCount: len(blocks),
		Pending:    toBlock(n.Chain.Pending()),
	}

	resp.Blocks = make([]block, len(blocks))
	for i, blk := range blocks {
		resp.Blocks[i] = toBlock(blk)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ValidateChain walks a node's replica checking the integrity invariants.
// A tampered replica reports the violation.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := h.lookupNode(r)
	if err != nil {
		return err
	}

	resp := struct {
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	}{
		Valid: true,
	}

	if err := n.Chain.Validate(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SealChain commits a node's scratchpad without proof of work.
func (h Handlers) SealChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := h.lookupNode(r)
	if err != nil {
		return err
	}

	n.Chain.Seal()

	return web.Respond(ctx, w, statusResponse("scratchpad sealed"), http.StatusOK)
}

// AddEvent appends an event to a node's scratchpad.
func (h Handlers) AddEvent(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req addEventRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	n := h.Network.Node(req.Node)
	if n == nil {
		return errs.Newf(errs.KindUnknownNode, "unknown node id %d", req.Node)
	}

	if err := n.Chain.AppendEvent(req.Type, []byte(req.Payload)); err != nil {
		return errs.New(errs.KindRejected, err)
	}

	return web.Respond(ctx, w, statusResponse("event appended"), http.StatusCreated)
}

// Consensus reports whether the network has consensus on the block with
// the specified content hash.
func (h Handlers) Consensus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	resp := struct {
		Hash      string `json:"hash"`
		Consensus bool   `json:"consensus"`
		Active    int    `json:"active_nodes"`
	}{
		Hash:      hash,
		Consensus: h.Network.HasConsensusHash(hash),
		Active:    h.Network.ActiveCount(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Events handles a web socket to provide simulator messages to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(msg); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// lookupNode resolves the :node route parameter to a registered node.
func (h Handlers) lookupNode(r *http.Request) (*network.Node, error) {
	id, err := nodeParam(r)
	if err != nil {
		return nil, err
	}

	n := h.Network.Node(id)
	if n == nil {
		return nil, errs.Newf(errs.KindUnknownNode, "unknown node id %d", id)
	}

	return n, nil
}

// nodeParam parses the :node route parameter.
func nodeParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(web.Param(r, "node"))
	if err != nil {
		return 0, errs.Newf(errs.KindBadRequest, "node id must be an integer")
	}
	return id, nil
}

// statusResponse builds the uniform status body.
func statusResponse(status string) any {
	return struct {
		Status string `json:"status"`
	}{
		Status: status,
	}
}
