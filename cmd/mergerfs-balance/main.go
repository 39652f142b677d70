// Command mergerfs-balance rebalances file-level storage utilization
// across the member drives of a mergerfs pool.
package main

import (
	"os"

	"mergerfs-balance/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
