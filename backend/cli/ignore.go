package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
)

type ignoreOpts struct {
	*rootOpts
}

func newIgnoreCommand(parent *rootOpts) *ignoreOpts {
	return &ignoreOpts{rootOpts: parent}
}

func (opts *ignoreOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "ignore",
		Short: "Print the effective ignore patterns as an ignore config document",
		Args:  cobra.NoArgs,
		RunE:  opts.RunE,
	}
}

func (opts *ignoreOpts) RunE(_ *cobra.Command, _ []string) error {
	matcher, err := opts.matcher()
	if err != nil {
		return err
	}
	cfg := ignore.FileConfig{IgnoreFields: matcher.Patterns()}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(opts.streams.Out, string(data))
	return err
}
