/*
 * backend/compare/semantic/semantic.go
 *
 * Structure-aware comparison of structured namespaces.
 * - Maps are compared key by key over the union of keys.
 * - Lists of maps are paired by identity, lists of scalars as sets.
 * - Every compared leaf is recorded, matched or not.
 */

package semantic

import (
	"fmt"
	"sort"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

// CompareNamespace diffs two structured namespaces. filter may be nil; it is consulted
// before descending into any subtree.
func CompareNamespace(left, right *model.StructuredNamespace, leftLabel, rightLabel string, filter model.PathFilter) *model.NamespaceComparison {
	result := model.NewNamespaceComparison(leftLabel, rightLabel)

	for _, id := range unionKeys(left.Keys(), right.Keys()) {
		leftObj, inLeft := left.Lookup(id)
		rightObj, inRight := right.Lookup(id)
		result.Add(compareObject(id, leftObj, rightObj, filter, inLeft && inRight))
	}

	result.Summarize()
	return result
}

// CompareObject diffs a single pair of structured objects under id. Either side may be nil.
func CompareObject(id string, left, right *model.StructuredObject, filter model.PathFilter) *model.ObjectComparison {
	return compareObject(id, left, right, filter, false)
}

func compareObject(id string, left, right *model.StructuredObject, filter model.PathFilter, bothRegistered bool) *model.ObjectComparison {
	oc := &model.ObjectComparison{ObjectID: id, ObjectType: objectType(left, right)}

	switch {
	case left == nil && right == nil:
		oc.Presence = model.PresenceNeither
		if bothRegistered {
			oc.Add(model.BothNull(id))
		}
		return oc
	case right == nil:
		oc.Presence = model.PresenceLeftOnly
		oc.Add(model.OnlyInLeft(id, model.PresencePlaceholder))
		return oc
	case left == nil:
		oc.Presence = model.PresenceRightOnly
		oc.Add(model.OnlyInRight(id, model.PresencePlaceholder))
		return oc
	}

	oc.Presence = model.PresenceBoth
	d := &differ{filter: filter, out: oc}
	for _, section := range model.Sections {
		d.diff(section, left.Section(section), right.Section(section))
	}
	return oc
}

type differ struct {
	filter model.PathFilter
	out    *model.ObjectComparison
}

func (d *differ) diff(path string, left, right model.Value) {
	if d.ignored(path) {
		return
	}

	switch {
	case left.IsNull() && right.IsNull():
		return
	case right.IsNull():
		d.out.Add(model.OnlyInLeft(path, presenceValue(left)))
	case left.IsNull():
		d.out.Add(model.OnlyInRight(path, presenceValue(right)))
	case left.IsMap() && right.IsMap():
		d.diffMaps(path, left, right)
	case left.IsSequence() && right.IsSequence():
		if isStructuredSequence(left, right) {
			d.diffStructuredSequences(path, left, right)
		} else {
			d.diffSimpleSequences(path, left, right)
		}
	default:
		l, r := left.String(), right.String()
		d.out.Add(model.Compared(path, l, r, l == r))
	}
}

func (d *differ) diffMaps(path string, left, right model.Value) {
	for _, key := range unionKeys(left.SortedKeys(), right.SortedKeys()) {
		d.diff(path+"."+key, left.Get(key), right.Get(key))
	}
}

func (d *differ) diffStructuredSequences(path string, left, right model.Value) {
	leftByID := indexByIdentity(left)
	rightByID := indexByIdentity(right)

	for _, id := range unionKeys(mapKeys(leftByID), mapKeys(rightByID)) {
		d.diff(fmt.Sprintf("%s[%s]", path, id), leftByID[id], rightByID[id])
	}
}

// diffSimpleSequences compares scalar lists as sets: order and duplicates do not matter.
// Element keys "path[elem]" go through the filter like any other path; when every
// difference is filtered out the list is reported as a match.
func (d *differ) diffSimpleSequences(path string, left, right model.Value) {
	leftSet := stringSet(left)
	rightSet := stringSet(right)

	equal := true
	for _, elem := range sortedSet(leftSet) {
		key := fmt.Sprintf("%s[%s]", path, elem)
		if _, ok := rightSet[elem]; !ok && !d.ignored(key) {
			equal = false
			d.out.Add(model.OnlyInLeft(key, elem))
		}
	}
	for _, elem := range sortedSet(rightSet) {
		key := fmt.Sprintf("%s[%s]", path, elem)
		if _, ok := leftSet[elem]; !ok && !d.ignored(key) {
			equal = false
			d.out.Add(model.OnlyInRight(key, elem))
		}
	}

	if equal && (len(leftSet) > 0 || len(rightSet) > 0) {
		d.out.Add(model.Compared(path, itemCount(left), itemCount(right), true))
	}
}

func (d *differ) ignored(path string) bool {
	return d.filter != nil && d.filter.ShouldIgnore(path)
}

// presenceValue renders the present side of a one-sided item: scalars keep their
// value, compound values use the placeholder.
func presenceValue(v model.Value) string {
	if v.Kind() == model.KindScalar {
		return v.String()
	}
	return model.PresencePlaceholder
}

// isStructuredSequence reports whether every non-null element on both sides is a map.
func isStructuredSequence(left, right model.Value) bool {
	seen := false
	for _, seq := range []model.Value{left, right} {
		for _, item := range seq.Items() {
			switch {
			case item.IsNull():
				continue
			case item.IsMap():
				seen = true
			default:
				return false
			}
		}
	}
	return seen
}

func stringSet(seq model.Value) map[string]struct{} {
	set := make(map[string]struct{}, seq.Len())
	for _, item := range seq.Items() {
		set[item.String()] = struct{}{}
	}
	return set
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func itemCount(seq model.Value) string {
	if seq.Len() == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", seq.Len())
}

func objectType(left, right *model.StructuredObject) string {
	if left != nil && left.Kind != "" {
		return left.Kind
	}
	if right != nil {
		return right.Kind
	}
	return ""
}

func mapKeys(m map[string]model.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func unionKeys(left, right []string) []string {
	seen := make(map[string]struct{}, len(left)+len(right))
	out := make([]string, 0, len(left)+len(right))
	for _, group := range [][]string{left, right} {
		for _, k := range group {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
