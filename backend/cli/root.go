/*
 * backend/cli/root.go
 *
 * Command tree for the driftcheck binary.
 * - compare runs a batch once and prints a report.
 * - serve runs the job API with a background worker pool.
 * - ignore prints the effective ignore patterns.
 * - version prints build details.
 */

package cli

import (
	"errors"
	"flag"
	"io"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

// ErrDriftDetected is returned by compare --fail-on-drift when any pair differs or fails.
var ErrDriftDetected = errors.New("drift detected")

// Streams are the command's output writers.
type Streams struct {
	Out    io.Writer
	ErrOut io.Writer
}

// DefaultStreams writes to the process stdout and stderr.
func DefaultStreams() Streams {
	return Streams{Out: os.Stdout, ErrOut: os.Stderr}
}

type rootOpts struct {
	streams      Streams
	kubeconfig   string
	ignoreConfig string
	noDefaults   bool
	logLevel     string
}

// NewRootCommand builds the driftcheck command tree.
func NewRootCommand(streams Streams) *cobra.Command {
	opts := &rootOpts{streams: streams}
	cmd := &cobra.Command{
		Use:           "driftcheck",
		Short:         "Compare Kubernetes namespace configuration across clusters, manifests and releases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file. Defaults to the standard loading rules")
	flags.StringVar(&opts.ignoreConfig, "ignore-config", "", "YAML or JSON file with an ignoreFields list")
	flags.BoolVar(&opts.noDefaults, "no-default-ignores", false, "Do not ignore namespace and server-managed fields when no ignore config is given")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Minimum level written to stderr: debug, info, warn or error")
	flags.AddGoFlagSet(klogFlags())

	cmd.AddCommand(
		newCompareCommand(opts).Command(),
		newServeCommand(opts).Command(),
		newIgnoreCommand(opts).Command(),
		newVersionCommand(streams),
	)
	return cmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand(DefaultStreams()).Execute()
}

// klogFlags exposes the client library's verbosity flags, logging to stderr.
func klogFlags() *flag.FlagSet {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Set("logtostderr", "true")
	return fs
}

func (o *rootOpts) logger() *logging.Logger {
	logger := logging.NewLogger(config.LogHistorySize)
	logger.SetOutput(o.streams.ErrOut, logging.ParseLevel(o.logLevel))
	return logger
}

// matcher builds the ignore matcher from --ignore-config, falling back to the defaults.
func (o *rootOpts) matcher() (*ignore.Matcher, error) {
	if o.ignoreConfig == "" {
		if o.noDefaults {
			return ignore.New(nil), nil
		}
		return ignore.New(ignore.DefaultPatterns), nil
	}
	cfg, err := ignore.LoadFile(o.ignoreConfig)
	if err != nil {
		return nil, err
	}
	return cfg.Matcher(), nil
}
