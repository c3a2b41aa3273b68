// Command doireg is the command-line front end of the identifier registry.
package main

import (
	"os"

	"github.com/mesh-intelligence/doireg/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
