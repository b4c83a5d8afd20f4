package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/luxury-yacht/driftcheck/backend/batch"
	"github.com/luxury-yacht/driftcheck/backend/compare"
	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/report"
)

type compareOpts struct {
	*rootOpts
	left        string
	right       string
	pairsFile   string
	engine      string
	mode        string
	leftLabel   string
	rightLabel  string
	output      string
	showMatches bool
	failOnDrift bool
	concurrency int

	// resolver replaces the source resolver in tests.
	resolver batch.Resolver
}

func newCompareCommand(parent *rootOpts) *compareOpts {
	return &compareOpts{rootOpts: parent}
}

func (opts *compareOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare namespace pairs and print a report",
		Example: `  driftcheck compare --left manifest:./baseline@team-a --right cluster:prod/team-a
  driftcheck compare --left cluster:staging/team-a --right cluster:prod/team-a --engine path -o json
  driftcheck compare --pairs pairs.yaml --fail-on-drift`,
		Args: cobra.NoArgs,
		RunE: opts.RunE,
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.left, "left", "", "Left source: manifest:<path>[@ns], cluster:[context/]ns or helm:[context/]ns/release")
	flags.StringVar(&opts.right, "right", "", "Right source, same forms as --left")
	flags.StringVar(&opts.pairsFile, "pairs", "", "YAML or JSON file with a list of pairs to compare as one batch")
	flags.StringVar(&opts.engine, "engine", string(compare.EngineSemantic), "Comparison engine: semantic or path")
	flags.StringVar(&opts.mode, "mode", string(compare.ModeSymmetric), "Comparison mode: symmetric or baseline")
	flags.StringVar(&opts.leftLabel, "left-label", "", "Display name of the left side")
	flags.StringVar(&opts.rightLabel, "right-label", "", "Display name of the right side")
	flags.StringVarP(&opts.output, "output", "o", string(report.FormatTable), "Output format: table, json, yaml or patch")
	flags.BoolVar(&opts.showMatches, "show-matches", false, "Include matching keys in the table output")
	flags.BoolVar(&opts.failOnDrift, "fail-on-drift", false, "Exit with an error when any pair differs or fails")
	flags.IntVar(&opts.concurrency, "concurrency", config.BatchConcurrency, "Pairs compared at once")
	return cmd
}

func (opts *compareOpts) RunE(cmd *cobra.Command, _ []string) error {
	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	pairs, err := opts.pairs()
	if err != nil {
		return err
	}
	for i, pair := range pairs {
		if err := pair.Validate(); err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
	}
	matcher, err := opts.matcher()
	if err != nil {
		return err
	}

	logger := opts.logger()
	resolver := opts.resolver
	if resolver == nil {
		resolver = batch.NewSourceResolver(batch.ResolverDependencies{Kubeconfig: opts.kubeconfig, Logger: logger})
	}
	runner := batch.NewRunner(batch.RunnerDependencies{
		Resolver:    resolver,
		Ignore:      ignore.NewStore(matcher),
		Logger:      logger,
		Concurrency: opts.concurrency,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, config.JobTimeout)
	defer cancel()

	result, err := runner.Run(ctx, pairs)
	if err != nil {
		return err
	}
	if err := report.Write(opts.streams.Out, format, result, report.Options{ShowMatches: opts.showMatches}); err != nil {
		return err
	}
	if opts.failOnDrift && (result.Summary.Failed > 0 || result.Summary.DifferenceCount > 0) {
		return fmt.Errorf("%w: %d differences, %d failed pairs", ErrDriftDetected, result.Summary.DifferenceCount, result.Summary.Failed)
	}
	return nil
}

// pairs reads --pairs, or builds the single pair named by --left and --right.
func (opts *compareOpts) pairs() ([]batch.Pair, error) {
	if opts.pairsFile != "" {
		if opts.left != "" || opts.right != "" {
			return nil, fmt.Errorf("--pairs cannot be combined with --left or --right")
		}
		data, err := os.ReadFile(opts.pairsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read pairs file: %w", err)
		}
		var pairs []batch.Pair
		if err := yaml.Unmarshal(data, &pairs); err != nil {
			return nil, fmt.Errorf("failed to parse pairs file %s: %w", opts.pairsFile, err)
		}
		if len(pairs) == 0 {
			return nil, fmt.Errorf("pairs file %s lists no pairs", opts.pairsFile)
		}
		return pairs, nil
	}

	if opts.left == "" || opts.right == "" {
		return nil, fmt.Errorf("--left and --right are required unless --pairs is given")
	}
	left, err := batch.ParseSourceRef(opts.left)
	if err != nil {
		return nil, fmt.Errorf("--left: %w", err)
	}
	right, err := batch.ParseSourceRef(opts.right)
	if err != nil {
		return nil, fmt.Errorf("--right: %w", err)
	}
	engine, err := compare.ParseEngine(opts.engine)
	if err != nil {
		return nil, err
	}
	mode, err := compare.ParseMode(opts.mode)
	if err != nil {
		return nil, err
	}
	return []batch.Pair{{
		Left:       left,
		Right:      right,
		Engine:     engine,
		Mode:       mode,
		LeftLabel:  opts.leftLabel,
		RightLabel: opts.rightLabel,
	}}, nil
}
