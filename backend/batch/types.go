/*
 * backend/batch/types.go
 *
 * Batch comparison request and result shapes.
 * - A Pair names two namespace sources plus the engine options.
 * - Each pair gets its own result; one failing pair does not fail the batch.
 */

package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/luxury-yacht/driftcheck/backend/compare"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

// SourceKind selects where a namespace snapshot comes from.
type SourceKind string

const (
	// SourceManifest reads a manifest file or directory.
	SourceManifest SourceKind = "manifest"
	// SourceCluster lists a namespace from a live cluster context.
	SourceCluster SourceKind = "cluster"
	// SourceHelm reads the rendered manifest of a Helm release.
	SourceHelm SourceKind = "helm"
)

// ErrInvalidSource marks source references that can never resolve. It is not retried.
var ErrInvalidSource = errors.New("invalid source")

// SourceRef identifies one side of a comparison.
type SourceRef struct {
	Kind      SourceKind `json:"kind"`
	Path      string     `json:"path,omitempty"`
	Context   string     `json:"context,omitempty"`
	Namespace string     `json:"namespace,omitempty"`
	Release   string     `json:"release,omitempty"`
}

// Validate checks the fields each kind requires.
func (s SourceRef) Validate() error {
	switch s.Kind {
	case SourceManifest:
		if s.Path == "" {
			return fmt.Errorf("%w: manifest source needs a path", ErrInvalidSource)
		}
	case SourceCluster:
		if s.Namespace == "" {
			return fmt.Errorf("%w: cluster source needs a namespace", ErrInvalidSource)
		}
	case SourceHelm:
		if s.Namespace == "" || s.Release == "" {
			return fmt.Errorf("%w: helm source needs a namespace and a release", ErrInvalidSource)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, s.Kind)
	}
	return nil
}

// UnmarshalJSON accepts the object form or the compact string form read by ParseSourceRef.
func (s *SourceRef) UnmarshalJSON(data []byte) error {
	var compact string
	if err := json.Unmarshal(data, &compact); err == nil {
		ref, err := ParseSourceRef(compact)
		if err != nil {
			return err
		}
		*s = ref
		return nil
	}
	type plain SourceRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SourceRef(p)
	return nil
}

// Label is the default display name of the source.
func (s SourceRef) Label() string {
	switch s.Kind {
	case SourceManifest:
		return s.Path
	case SourceCluster:
		if s.Context == "" {
			return s.Namespace
		}
		return s.Context + "/" + s.Namespace
	case SourceHelm:
		return "helm:" + s.Namespace + "/" + s.Release
	default:
		return string(s.Kind)
	}
}

// ParseSourceRef parses the compact CLI form:
//
//	manifest:<path>[@namespace]
//	cluster:[context/]namespace
//	helm:[context/]namespace/release
func ParseSourceRef(value string) (SourceRef, error) {
	kind, rest, ok := strings.Cut(value, ":")
	if !ok || rest == "" {
		return SourceRef{}, fmt.Errorf("%w: %q is not kind:target", ErrInvalidSource, value)
	}

	ref := SourceRef{Kind: SourceKind(kind)}
	switch ref.Kind {
	case SourceManifest:
		ref.Path = rest
		if path, ns, found := strings.Cut(rest, "@"); found {
			ref.Path, ref.Namespace = path, ns
		}
	case SourceCluster:
		parts := strings.Split(rest, "/")
		ref.Namespace = parts[len(parts)-1]
		ref.Context = strings.Join(parts[:len(parts)-1], "/")
	case SourceHelm:
		parts := strings.Split(rest, "/")
		if len(parts) < 2 {
			return SourceRef{}, fmt.Errorf("%w: helm source %q needs namespace/release", ErrInvalidSource, rest)
		}
		ref.Release = parts[len(parts)-1]
		ref.Namespace = parts[len(parts)-2]
		ref.Context = strings.Join(parts[:len(parts)-2], "/")
	}
	return ref, ref.Validate()
}

// Pair is one comparison in a batch.
type Pair struct {
	Left       SourceRef      `json:"left"`
	Right      SourceRef      `json:"right"`
	Engine     compare.Engine `json:"engine,omitempty"`
	Mode       compare.Mode   `json:"mode,omitempty"`
	LeftLabel  string         `json:"leftLabel,omitempty"`
	RightLabel string         `json:"rightLabel,omitempty"`
}

// Validate checks both sources and the engine options.
func (p Pair) Validate() error {
	if err := p.Left.Validate(); err != nil {
		return fmt.Errorf("left: %w", err)
	}
	if err := p.Right.Validate(); err != nil {
		return fmt.Errorf("right: %w", err)
	}
	if _, err := compare.ParseEngine(string(p.Engine)); err != nil {
		return err
	}
	if _, err := compare.ParseMode(string(p.Mode)); err != nil {
		return err
	}
	return nil
}

// PairResult is the outcome of one pair. Exactly one of Comparison and Error is set.
// LeftObjects and RightObjects keep the compared structured objects for remediation output.
type PairResult struct {
	Pair       Pair                       `json:"pair"`
	Comparison *model.NamespaceComparison `json:"comparison,omitempty"`
	Error      string                     `json:"error,omitempty"`

	LeftObjects  *model.StructuredNamespace `json:"-"`
	RightObjects *model.StructuredNamespace `json:"-"`
}

// Failed reports whether the pair produced no comparison.
func (r PairResult) Failed() bool {
	return r.Error != ""
}

// Summary aggregates a batch.
type Summary struct {
	Pairs                  int `json:"pairs"`
	Failed                 int `json:"failed"`
	PairsWithDifferences   int `json:"pairsWithDifferences"`
	ObjectsWithDifferences int `json:"objectsWithDifferences"`
	DifferenceCount        int `json:"differenceCount"`
}

// Result holds every pair result in request order.
type Result struct {
	Pairs   []PairResult `json:"pairs"`
	Summary Summary      `json:"summary"`
}

func summarize(pairs []PairResult) Summary {
	s := Summary{Pairs: len(pairs)}
	for _, pr := range pairs {
		if pr.Failed() {
			s.Failed++
			continue
		}
		diffs := pr.Comparison.Summary.DifferenceCount
		if diffs > 0 {
			s.PairsWithDifferences++
		}
		s.DifferenceCount += diffs
		s.ObjectsWithDifferences += pr.Comparison.Summary.ObjectsWithDifferences
	}
	return s
}
