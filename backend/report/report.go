/*
 * backend/report/report.go
 *
 * Renders batch results for people and machines.
 * - JSON and YAML documents carry the full result shape.
 * - The table view lists drifting keys per pair.
 */

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/luxury-yacht/driftcheck/backend/batch"
)

// Format names an output rendering.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
	FormatPatch Format = "patch"
)

// Formats lists the accepted output formats.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatPatch}

// ParseFormat resolves a format name. An empty name selects the table view.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatPatch:
		return FormatPatch, nil
	}
	return "", fmt.Errorf("unknown output format %q", name)
}

// Options tune the table view.
type Options struct {
	// ShowMatches includes MATCH and BOTH_NULL rows.
	ShowMatches bool
}

// Write renders result in the given format.
func Write(w io.Writer, format Format, result *batch.Result, opts Options) error {
	if result == nil {
		return fmt.Errorf("no result to render")
	}
	switch format {
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatYAML:
		return WriteYAML(w, result)
	case FormatTable:
		return WriteTable(w, result, opts)
	case FormatPatch:
		patches, err := BatchRemediation(result)
		if err != nil {
			return err
		}
		return WriteJSON(w, patches)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as YAML using its JSON field names.
func WriteYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}
