// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/chainsim/app/services/simulator/handlers/v1/public"
	"github.com/ardanlabs/chainsim/foundation/events"
	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
	"github.com/ardanlabs/chainsim/foundation/simulator/network"
	"github.com/ardanlabs/chainsim/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log       *zap.SugaredLogger
	Network   *network.Network
	Evts      *events.Hub
	EvHandler ledger.EventHandler
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:       cfg.Log,
		Network:   cfg.Network,
		Evts:      cfg.Evts,
		EvHandler: cfg.EvHandler,
	}

	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/node/list", pbl.Nodes)
	app.Handle(http.MethodPost, version, "/node/add", pbl.AddNode)
	app.Handle(http.MethodGet, version, "/node/stop/:node", pbl.StopNode)
	app.Handle(http.MethodGet, version, "/node/start/:node", pbl.StartNode)
	app.Handle(http.MethodGet, version, "/chain/list/:node", pbl.Chain)
	app.Handle(http.MethodGet, version, "/chain/validate/:node", pbl.ValidateChain)
	app.Handle(http.MethodPost, version, "/chain/seal/:node", pbl.SealChain)
	app.Handle(http.MethodPost, version, "/event/add", pbl.AddEvent)
	app.Handle(http.MethodGet, version, "/consensus/:hash", pbl.Consensus)
	app.Handle(http.MethodGet, version, "/events", pbl.Events)
}
