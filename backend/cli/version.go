package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags -X.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

func newVersionCommand(streams Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(streams.Out, "driftcheck %s (commit %s, built %s)\n", Version, orUnknown(Commit), orUnknown(BuildTime))
			return err
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
