// Command dittoauth authenticates the invoking user through the configured
// method chain and runs a command on success.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/dittoauth/cmd/dittoauth/cmdutil"
	"github.com/marmos91/dittoauth/cmd/dittoauth/commands"

	// registers the Prometheus auth and timestamp collectors
	_ "github.com/marmos91/dittoauth/pkg/metrics/prometheus"
)

// Set with -ldflags "-X main.version=..." at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version, commands.Commit, commands.Date = version, commit, date
	os.Exit(run())
}

// run returns the process exit status. A wrapped command's own status is
// passed through without an error line.
func run() int {
	err := commands.Execute()
	var exitErr *cmdutil.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "dittoauth: %v\n", err)
	}
	return cmdutil.ExitCode(err)
}
