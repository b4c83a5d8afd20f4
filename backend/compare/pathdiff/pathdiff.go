/*
 * backend/compare/pathdiff/pathdiff.go
 *
 * Path-based comparison of flattened namespaces.
 * - The left side's field table is the schema: only its keys are checked.
 * - Baseline mode also surfaces sibling list elements present on the right.
 */

package pathdiff

import (
	"regexp"
	"sort"
	"strings"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

// BaselineLabel is the left label used by CompareWithBaseline.
const BaselineLabel = "baseline"

var listIndexPattern = regexp.MustCompile(`^(.*)\[(\d+)\](.*)$`)

// CompareNamespace diffs two flattened namespaces field by field.
// filter may be nil; when set it pre-filters both sides' combined field tables.
func CompareNamespace(left, right *model.FlatNamespace, leftLabel, rightLabel string, filter model.PathFilter) *model.NamespaceComparison {
	return compare(left, right, leftLabel, rightLabel, filter, false)
}

// CompareWithBaseline checks actual against the fields named by baseline. For every
// baseline key that addresses a list element, every other element at the same
// position in the actual object is reported too (ONLY_IN_RIGHT), so that searches
// across sibling list slots can see them.
func CompareWithBaseline(baseline, actual *model.FlatNamespace, actualLabel string, filter model.PathFilter) *model.NamespaceComparison {
	return compare(baseline, actual, BaselineLabel, actualLabel, filter, true)
}

func compare(left, right *model.FlatNamespace, leftLabel, rightLabel string, filter model.PathFilter, aliasLists bool) *model.NamespaceComparison {
	result := model.NewNamespaceComparison(leftLabel, rightLabel)

	for _, id := range unionKeys(left.Keys(), right.Keys()) {
		leftObj, _ := left.Lookup(id)
		rightObj, _ := right.Lookup(id)
		result.Add(compareObject(id, leftObj, rightObj, filter, aliasLists, bothRegistered(left, right, id)))
	}

	result.Summarize()
	return result
}

func bothRegistered(left, right *model.FlatNamespace, id string) bool {
	_, inLeft := left.Lookup(id)
	_, inRight := right.Lookup(id)
	return inLeft && inRight
}

// CompareObject diffs a single pair of flattened objects under id. Either side may be nil.
func CompareObject(id string, left, right *model.FlatObject, filter model.PathFilter) *model.ObjectComparison {
	return compareObject(id, left, right, filter, false, false)
}

func compareObject(id string, left, right *model.FlatObject, filter model.PathFilter, aliasLists, bothRegistered bool) *model.ObjectComparison {
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
	leftFields := left.FilteredFields(filter)
	rightFields := right.FilteredFields(filter)

	keys := sortedKeys(leftFields)
	processed := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		processed[key] = struct{}{}
		oc.Add(compareField(key, leftFields[key], rightFields))
	}

	if aliasLists {
		for _, key := range keys {
			for _, alias := range listAliases(key, rightFields) {
				if _, seen := processed[alias]; seen {
					continue
				}
				processed[alias] = struct{}{}
				oc.Add(model.OnlyInRight(alias, rightFields[alias]))
			}
		}
	}

	return oc
}

func compareField(key, leftValue string, rightFields map[string]string) model.KeyComparison {
	rightValue, ok := rightFields[key]
	if !ok {
		return model.OnlyInLeft(key, leftValue)
	}
	return model.Compared(key, leftValue, rightValue, normalize(key, leftValue) == normalize(key, rightValue))
}

// normalize strips the trailing newlines the API server appends to config data values.
func normalize(key, value string) string {
	if strings.HasPrefix(key, model.SectionData+".") {
		return strings.TrimRight(value, "\n")
	}
	return value
}

// listAliases returns right-hand keys that differ from key only in its last list index.
func listAliases(key string, rightFields map[string]string) []string {
	match := listIndexPattern.FindStringSubmatch(key)
	if match == nil {
		return nil
	}
	sibling := regexp.MustCompile(`^` + regexp.QuoteMeta(match[1]) + `\[\d+\]` + regexp.QuoteMeta(match[3]) + `$`)

	var aliases []string
	for candidate := range rightFields {
		if candidate != key && sibling.MatchString(candidate) {
			aliases = append(aliases, candidate)
		}
	}
	sort.Strings(aliases)
	return aliases
}

func objectType(left, right *model.FlatObject) string {
	if left != nil && left.Kind != "" {
		return left.Kind
	}
	if right != nil {
		return right.Kind
	}
	return ""
}

func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
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
