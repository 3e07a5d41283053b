// Package genesis maintains access to the simulator settings. The defaults
// reproduce the reference behavior of the simulator.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// Genesis represents the settings every node in a simulated network shares.
type Genesis struct {
	Difficulty           int     `json:"difficulty"`             // Number of leading '0' characters required of a mined block hash.
	MaxEventsPerBlock    int     `json:"max_events_per_block"`   // Hard cap on the number of events a block can hold.
	InitialEventCapacity int     `json:"initial_event_capacity"` // Starting capacity of a block's event array; grows by doubling.
	MaxNodes             int     `json:"max_nodes"`              // Bound on the node registry.
	PowYieldTrials       int     `json:"pow_yield_trials"`       // Number of nonce trials between cooperative yields.
	MiningBackoffMS      int     `json:"mining_backoff_ms"`      // Sleep between groups of nonce trials.
	LoopDelayMS          int     `json:"loop_delay_ms"`          // Sleep between miner loop iterations.
	ConsensusThreshold   float64 `json:"consensus_threshold"`    // Fraction of active nodes required for consensus.
}

// Default returns the reference settings.
func Default() Genesis {
	return Genesis{
		Difficulty:           2,
		MaxEventsPerBlock:    100,
		InitialEventCapacity: 10,
		MaxNodes:             10,
		PowYieldTrials:       10,
		MiningBackoffMS:      10,
		LoopDelayMS:          50,
		ConsensusThreshold:   0.51,
	}
}

// MiningBackoff returns the cooperative yield interval as a duration.
func (g Genesis) MiningBackoff() time.Duration {
	return time.Duration(g.MiningBackoffMS) * time.Millisecond
}

// LoopDelay returns the miner loop delay as a duration.
func (g Genesis) LoopDelay() time.Duration {
	return time.Duration(g.LoopDelayMS) * time.Millisecond
}

// =============================================================================

// Load opens and consumes a genesis file. Settings absent from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
