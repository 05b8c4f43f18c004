// Command chainsyncd wires the account-state cache, block store, difficulty
// cache, and sync consumer together behind a cobra CLI, following the
// teacher's cmd/tendermint layout.
package main

import (
	"fmt"
	"os"

	"github.com/superhow/catapult-server/cmd/chainsyncd/commands"
)

func main() {
	if err := commands.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
