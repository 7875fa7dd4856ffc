// Command pvault is the PolicyVault command-line interface.
package main

import (
	"os"

	"github.com/avior/policyvault/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
