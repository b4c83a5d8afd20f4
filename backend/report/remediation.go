package report

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/luxury-yacht/driftcheck/backend/batch"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

// RemediationPatch returns the JSON merge patch that turns the comparable sections of
// actual into those of desired. A nil result means no change is needed.
func RemediationPatch(desired, actual *model.StructuredObject) (json.RawMessage, error) {
	if desired == nil || actual == nil {
		return nil, fmt.Errorf("remediation needs both objects")
	}
	original, err := json.Marshal(patchDocument(actual))
	if err != nil {
		return nil, err
	}
	modified, err := json.Marshal(patchDocument(desired))
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge patch for %s/%s: %w", desired.Kind, desired.Name, err)
	}
	if string(patch) == "{}" {
		return nil, nil
	}
	return patch, nil
}

// PairRemediation is the set of merge patches for one compared pair, keyed by object id.
type PairRemediation struct {
	LeftLabel  string                     `json:"leftLabel"`
	RightLabel string                     `json:"rightLabel"`
	Patches    map[string]json.RawMessage `json:"patches"`
	Error      string                     `json:"error,omitempty"`
}

// NamespaceRemediation builds patches for every object present on both sides whose
// comparison reports differences. The left side is treated as the desired state.
func NamespaceRemediation(left, right *model.StructuredNamespace, cmp *model.NamespaceComparison) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	for _, id := range cmp.SortedIDs() {
		oc := cmp.ObjectComparisons[id]
		if oc.Presence != model.PresenceBoth || oc.DifferenceCount() == 0 {
			continue
		}
		desired, _ := left.Lookup(id)
		actual, _ := right.Lookup(id)
		if desired == nil || actual == nil {
			continue
		}
		patch, err := RemediationPatch(desired, actual)
		if err != nil {
			return nil, err
		}
		if patch != nil {
			out[id] = patch
		}
	}
	return out, nil
}

// BatchRemediation builds patches for every successful pair of result.
func BatchRemediation(result *batch.Result) ([]PairRemediation, error) {
	out := make([]PairRemediation, 0, len(result.Pairs))
	for _, pr := range result.Pairs {
		left, right := pairLabels(pr)
		entry := PairRemediation{LeftLabel: left, RightLabel: right, Patches: map[string]json.RawMessage{}}
		switch {
		case pr.Failed():
			entry.Error = pr.Error
		case pr.LeftObjects == nil || pr.RightObjects == nil:
			entry.Error = "compared objects are not available"
		default:
			patches, err := NamespaceRemediation(pr.LeftObjects, pr.RightObjects, pr.Comparison)
			if err != nil {
				return nil, err
			}
			entry.Patches = patches
		}
		out = append(out, entry)
	}
	return out, nil
}

// patchDocument keeps the user-owned parts of obj. Identity and server-populated
// metadata never belong in a remediation patch.
func patchDocument(obj *model.StructuredObject) map[string]any {
	doc := map[string]any{}
	metadata := map[string]any{}
	for _, field := range patchableMetadata {
		if v := obj.Metadata.Get(field); !v.IsNull() {
			metadata[field] = v.Interface()
		}
	}
	if len(metadata) > 0 {
		doc[model.SectionMetadata] = metadata
	}
	if !obj.Spec.IsNull() {
		doc[model.SectionSpec] = obj.Spec.Interface()
	}
	if !obj.Data.IsNull() {
		doc[model.SectionData] = obj.Data.Interface()
	}
	return doc
}

var patchableMetadata = []string{"labels", "annotations"}
