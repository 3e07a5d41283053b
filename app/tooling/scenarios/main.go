// This program runs the scripted demonstration scenarios against an
// in-process simulated network.
package main

import (
	"github.com/ardanlabs/chainsim/app/tooling/scenarios/commands"
)

func main() {
	commands.Execute()
}
