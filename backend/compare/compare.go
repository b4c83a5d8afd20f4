/*
 * backend/compare/compare.go
 *
 * Engine selection for namespace comparisons.
 * - Both engines satisfy Comparator and return the same result shape.
 * - The engine is an explicit request parameter; there is no global toggle.
 */

package compare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
	"github.com/luxury-yacht/driftcheck/backend/compare/pathdiff"
	"github.com/luxury-yacht/driftcheck/backend/compare/semantic"
)

// Engine names a comparison algorithm.
type Engine string

const (
	// EnginePath diffs flattened field tables (order sensitive).
	EnginePath Engine = "path"
	// EngineSemantic diffs structured trees, pairing list elements by identity.
	EngineSemantic Engine = "semantic"
)

// Engines lists the supported engines.
var Engines = []Engine{EnginePath, EngineSemantic}

// Mode selects symmetric comparison or checklist validation against a baseline.
type Mode string

const (
	ModeSymmetric Mode = "symmetric"
	ModeBaseline  Mode = "baseline"
)

var (
	// ErrUnknownEngine is returned for engine names outside Engines.
	ErrUnknownEngine = errors.New("unknown comparison engine")
	// ErrUnknownMode is returned for mode names other than symmetric or baseline.
	ErrUnknownMode = errors.New("unknown comparison mode")
	// ErrRepresentationMissing is returned when a snapshot lacks the form the engine reads.
	ErrRepresentationMissing = errors.New("snapshot lacks the representation required by the engine")
)

// ParseEngine resolves an engine name. An empty name selects the semantic engine.
func ParseEngine(value string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(value))) {
	case "", EngineSemantic, "v2":
		return EngineSemantic, nil
	case EnginePath, "v1":
		return EnginePath, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, value)
	}
}

// ParseMode resolves a mode name. An empty name selects symmetric mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeSymmetric:
		return ModeSymmetric, nil
	case ModeBaseline:
		return ModeBaseline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

// Request carries the per-call options shared by both engines.
type Request struct {
	Engine     Engine
	Mode       Mode
	LeftLabel  string
	RightLabel string
	// Filter suppresses ignored paths. nil compares everything.
	Filter model.PathFilter
}

// Comparator diffs two snapshots into a namespace comparison.
type Comparator interface {
	Engine() Engine
	Compare(left, right *model.Snapshot, req Request) (*model.NamespaceComparison, error)
}

// New returns the comparator for engine.
func New(engine Engine) (Comparator, error) {
	switch engine {
	case EnginePath:
		return pathComparator{}, nil
	case EngineSemantic:
		return semanticComparator{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Run compares left and right with the engine named in req.
func Run(req Request, left, right *model.Snapshot) (*model.NamespaceComparison, error) {
	comparator, err := New(req.Engine)
	if err != nil {
		return nil, err
	}
	return comparator.Compare(left, right, req)
}

type pathComparator struct{}

func (pathComparator) Engine() Engine { return EnginePath }

func (pathComparator) Compare(left, right *model.Snapshot, req Request) (*model.NamespaceComparison, error) {
	if left == nil || right == nil || left.Flat == nil || right.Flat == nil {
		return nil, fmt.Errorf("%w: %s engine needs flattened objects", ErrRepresentationMissing, EnginePath)
	}

	var result *model.NamespaceComparison
	switch req.Mode {
	case ModeBaseline:
		result = pathdiff.CompareWithBaseline(left.Flat, right.Flat, rightLabel(req, right), req.Filter)
		if req.LeftLabel != "" {
			result.LeftLabel = req.LeftLabel
		}
	case ModeSymmetric, "":
		result = pathdiff.CompareNamespace(left.Flat, right.Flat, leftLabel(req, left), rightLabel(req, right), req.Filter)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	result.Engine = string(EnginePath)
	return result, nil
}

type semanticComparator struct{}

func (semanticComparator) Engine() Engine { return EngineSemantic }

// Compare ignores the baseline restriction: structured comparison always walks the
// union of both trees. Baseline mode only changes the default left label.
func (semanticComparator) Compare(left, right *model.Snapshot, req Request) (*model.NamespaceComparison, error) {
	if left == nil || right == nil || left.Structured == nil || right.Structured == nil {
		return nil, fmt.Errorf("%w: %s engine needs structured objects", ErrRepresentationMissing, EngineSemantic)
	}

	lLabel := leftLabel(req, left)
	switch req.Mode {
	case ModeBaseline:
		if req.LeftLabel == "" {
			lLabel = pathdiff.BaselineLabel
		}
	case ModeSymmetric, "":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	result := semantic.CompareNamespace(left.Structured, right.Structured, lLabel, rightLabel(req, right), req.Filter)
	result.Engine = string(EngineSemantic)
	return result, nil
}

func leftLabel(req Request, snap *model.Snapshot) string {
	if req.LeftLabel != "" {
		return req.LeftLabel
	}
	return snap.Name
}

func rightLabel(req Request, snap *model.Snapshot) string {
	if req.RightLabel != "" {
		return req.RightLabel
	}
	return snap.Name
}
