package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/liggitt/tabwriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/luxury-yacht/driftcheck/backend/batch"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

const (
	tabwriterMinWidth = 6
	tabwriterWidth    = 4
	tabwriterPadding  = 3
	tabwriterPadChar  = ' '
	tabwriterFlags    = tabwriter.RememberWidths

	// nullCell renders an absent value.
	nullCell = "<none>"
	// maxCellWidth truncates long values so rows stay readable.
	maxCellWidth = 60
)

var statusTitler = cases.Title(language.English)

// StatusTitle turns ONLY_IN_LEFT into "Only In Left".
func StatusTitle(s model.Status) string {
	return statusTitler.String(strings.ReplaceAll(string(s), "_", " "))
}

// WriteTable prints one section per pair followed by the batch totals.
func WriteTable(w io.Writer, result *batch.Result, opts Options) error {
	tw := tabwriter.NewWriter(w, tabwriterMinWidth, tabwriterWidth, tabwriterPadding, tabwriterPadChar, tabwriterFlags)

	for i, pr := range result.Pairs {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		left, right := pairLabels(pr)
		if pr.Failed() {
			fmt.Fprintf(tw, "%s vs %s: failed: %s\n", left, right, pr.Error)
			continue
		}
		writePairTable(tw, pr.Comparison, opts)
	}
	if len(result.Pairs) > 0 {
		fmt.Fprintln(tw)
	}
	s := result.Summary
	fmt.Fprintf(tw, "%d pairs, %d failed, %d with differences, %d differences in %d objects\n",
		s.Pairs, s.Failed, s.PairsWithDifferences, s.DifferenceCount, s.ObjectsWithDifferences)
	return tw.Flush()
}

func writePairTable(w io.Writer, cmp *model.NamespaceComparison, opts Options) {
	s := cmp.Summary
	fmt.Fprintf(w, "%s vs %s (%s): %d differences, %.1f%% objects match\n",
		cmp.LeftLabel, cmp.RightLabel, cmp.Engine, s.DifferenceCount, s.MatchPercentage)

	rows := 0
	for _, id := range cmp.SortedIDs() {
		oc := cmp.ObjectComparisons[id]
		for _, item := range oc.Items {
			if !opts.ShowMatches && !item.Status.IsDifference() {
				continue
			}
			if rows == 0 {
				fmt.Fprintln(w, "OBJECT\tKEY\tSTATUS\tLEFT\tRIGHT")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, item.Key, StatusTitle(item.Status), cell(item.LeftValue), cell(item.RightValue))
			rows++
		}
	}
	if rows == 0 {
		fmt.Fprintln(w, "No differences.")
	}
}

func pairLabels(pr batch.PairResult) (string, string) {
	left := pr.Pair.LeftLabel
	if left == "" {
		left = pr.Pair.Left.Label()
	}
	right := pr.Pair.RightLabel
	if right == "" {
		right = pr.Pair.Right.Label()
	}
	return left, right
}

func cell(v *string) string {
	if v == nil {
		return nullCell
	}
	s := strings.NewReplacer("\n", `\n`, "\t", " ").Replace(*v)
	if s == "" {
		return `""`
	}
	if len(s) > maxCellWidth {
		return s[:maxCellWidth-3] + "..."
	}
	return s
}
