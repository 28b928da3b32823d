// Command roomcore serves and edits a household's furniture placement.
package main

import (
	"os"

	"roomcore/cmd/roomcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
