// Command ledger queries and edits JSON file record stores.
package main

import (
	"os"

	"github.com/mesh-intelligence/ledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
