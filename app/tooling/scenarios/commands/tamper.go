package commands

import (
	"log"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/ledger"
	"github.com/ardanlabs/chainsim/foundation/simulator/worker"
	"github.com/spf13/cobra"
)

// tamperCmd lets a malicious node rewrite a committed transfer and shows
// how validation and consensus expose it.
var tamperCmd = &cobra.Command{
	Use:   "tamper",
	Short: "A malicious node rewrites history and is caught",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTamper(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(tamperCmd)
}

func runTamper() error {
	net, zlog, err := newNetwork("tamper")
	if err != nil {
		return err
	}
	defer net.Shutdown()

	for i := 0; i < 3; i++ {
		mining := i == 0

		if _, err := net.AddNode(mining, false); err != nil {
			return err
		}
	}

	// Seed a transfer before the miner starts so the first mined block
	// carries one.
	if err := net.Node(0).Chain.AppendEvent(ledger.EventTypeTransfer, []byte(`{"from":"System","to":"Alice","amount":100}`)); err != nil {
		return err
	}

	ev := func(v string, args ...any) {}
	for _, n := range net.Nodes() {
		worker.Run(net, n, ev)
	}

	// Let the miner commit and propagate at least one block.
	deadline := time.Now().Add(runFor)
	for net.Node(2).Chain.BlockCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	net.Shutdown()

	victim := net.Node(2)
	if victim.Chain.BlockCount() < 2 {
		zlog.Infow("no block propagated in time; rerun with a longer --run-for")
		return nil
	}
	untampered := victim.Chain.Blocks()[1]

	if !victim.Chain.Tamper([]byte(`{"from":"System","to":"Mallory","amount":1000000}`)) {
		zlog.Infow("no transfer to tamper with; rerun with a longer --run-for")
		return nil
	}

	tampered := victim.Chain.Blocks()[1]

	zlog.Infow("validation", "node", victim.ID, "error", victim.Chain.Validate())
	zlog.Infow("consensus", "block", "tampered", "result", net.HasConsensus(tampered))
	zlog.Infow("consensus", "block", "untampered", "result", net.HasConsensus(untampered))

	return nil
}
