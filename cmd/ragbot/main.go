// Command ragbot answers questions about your documents.
package main

import (
	"os"

	"github.com/custodia-labs/ragbot/internal/adapters/driving/cli"
)

// version is set by the build, e.g. -ldflags "-X main.version=1.2.0".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
