// Package commands contains the scenario commands for the simulator.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/chainsim/foundation/logger"
	"github.com/ardanlabs/chainsim/foundation/simulator/genesis"
	"github.com/ardanlabs/chainsim/foundation/simulator/network"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	difficulty int
	runFor     time.Duration
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&difficulty, "difficulty", "d", 2, "Leading zeros required of a mined block hash.")
	rootCmd.PersistentFlags().DurationVarP(&runFor, "run-for", "r", 5*time.Second, "How long scenarios let the miners run.")
}

var rootCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Scripted demonstrations of the blockchain simulator",
}

// Execute runs the selected scenario command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// =============================================================================

// newNetwork builds a logger backed network for a scenario run.
func newNetwork(name string) (*network.Network, *zap.SugaredLogger, error) {
	log, err := logger.New("SCENARIO")
	if err != nil {
		return nil, nil, err
	}

	gen := genesis.Default()
	gen.Difficulty = difficulty

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "scenario", name)
	}

	net := network.New(network.Config{
		Genesis:   gen,
		EvHandler: ev,
	})

	return net, log, nil
}

// logChain writes the full chain of a node to the logs, block by block.
func logChain(log *zap.SugaredLogger, n *network.Node) {
	blocks := n.Chain.Blocks()

	log.Infow("chain", "node", n.ID, "blocks", len(blocks))

	for _, blk := range blocks {
		log.Infow("block",
			"node", n.ID,
			"index", blk.Index,
			"hash", blk.Hash,
			"prev", blk.PrevBlockHash,
			"merkle_root", blk.MerkleRoot,
			"nonce", blk.Nonce,
			"events", len(blk.Events),
		)

		for i, evt := range blk.Events {
			log.Infow("event", "node", n.ID, "block", blk.Index, "n", i, "type", evt.Type, "payload", string(evt.Payload), "at", evt.TimeStamp)
		}
	}
}
