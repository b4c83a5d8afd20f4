/*
 * backend/compare/model/result.go
 *
 * Comparison result shapes shared by both engines.
 * - Key, object and namespace level verdicts.
 * - Namespace summary aggregation.
 */

package model

import "sort"

// Status is the verdict for one compared key.
type Status string

const (
	StatusMatch       Status = "MATCH"
	StatusDifferent   Status = "DIFFERENT"
	StatusOnlyInLeft  Status = "ONLY_IN_LEFT"
	StatusOnlyInRight Status = "ONLY_IN_RIGHT"
	StatusBothNull    Status = "BOTH_NULL"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusMatch, StatusDifferent, StatusOnlyInLeft, StatusOnlyInRight, StatusBothNull}

// IsDifference reports whether the status counts as drift.
func (s Status) IsDifference() bool {
	return s != StatusMatch && s != StatusBothNull
}

// PresencePlaceholder stands in for a value that exists but has no scalar rendering.
const PresencePlaceholder = "exists"

// KeyComparison is the verdict for a single field path (or object id).
type KeyComparison struct {
	Key        string  `json:"key"`
	LeftValue  *string `json:"leftValue"`
	RightValue *string `json:"rightValue"`
	Status     Status  `json:"status"`
}

// Str returns a pointer to s for KeyComparison values.
func Str(s string) *string { return &s }

// Compared builds a MATCH or DIFFERENT item depending on equal.
func Compared(key, left, right string, equal bool) KeyComparison {
	status := StatusDifferent
	if equal {
		status = StatusMatch
	}
	return KeyComparison{Key: key, LeftValue: Str(left), RightValue: Str(right), Status: status}
}

// OnlyInLeft builds an item for a key that has no right-hand counterpart.
func OnlyInLeft(key, left string) KeyComparison {
	return KeyComparison{Key: key, LeftValue: Str(left), Status: StatusOnlyInLeft}
}

// OnlyInRight builds an item for a key that has no left-hand counterpart.
func OnlyInRight(key, right string) KeyComparison {
	return KeyComparison{Key: key, RightValue: Str(right), Status: StatusOnlyInRight}
}

// BothNull builds an item for a key registered on both sides without a value.
func BothNull(key string) KeyComparison {
	return KeyComparison{Key: key, Status: StatusBothNull}
}

// Presence records which sides held the object.
type Presence string

const (
	PresenceBoth      Presence = "both"
	PresenceLeftOnly  Presence = "left"
	PresenceRightOnly Presence = "right"
	PresenceNeither   Presence = "neither"
)

// ObjectComparison collects the key verdicts for one object.
type ObjectComparison struct {
	ObjectID   string          `json:"objectId"`
	ObjectType string          `json:"objectType"`
	Presence   Presence        `json:"presence"`
	Items      []KeyComparison `json:"items"`
}

// Add appends item verdicts.
func (o *ObjectComparison) Add(items ...KeyComparison) {
	o.Items = append(o.Items, items...)
}

// DifferenceCount counts items whose status is neither MATCH nor BOTH_NULL.
func (o *ObjectComparison) DifferenceCount() int {
	if o == nil {
		return 0
	}
	count := 0
	for _, item := range o.Items {
		if item.Status.IsDifference() {
			count++
		}
	}
	return count
}

// Differences returns only the drifting items.
func (o *ObjectComparison) Differences() []KeyComparison {
	if o == nil {
		return nil
	}
	var out []KeyComparison
	for _, item := range o.Items {
		if item.Status.IsDifference() {
			out = append(out, item)
		}
	}
	return out
}

// Item returns the first item with the given key.
func (o *ObjectComparison) Item(key string) (KeyComparison, bool) {
	if o == nil {
		return KeyComparison{}, false
	}
	for _, item := range o.Items {
		if item.Key == key {
			return item, true
		}
	}
	return KeyComparison{}, false
}

// Summary aggregates object level counts for a namespace comparison.
type Summary struct {
	TotalLeft              int            `json:"totalLeft"`
	TotalRight             int            `json:"totalRight"`
	Common                 int            `json:"common"`
	OnlyInLeft             int            `json:"onlyInLeft"`
	OnlyInRight            int            `json:"onlyInRight"`
	ObjectsWithDifferences int            `json:"objectsWithDifferences"`
	DifferenceCount        int            `json:"differenceCount"`
	MatchPercentage        float64        `json:"matchPercentage"`
	StatusCounts           map[Status]int `json:"statusCounts"`
}

// NamespaceComparison is the full result of comparing two namespaces.
type NamespaceComparison struct {
	LeftLabel         string                       `json:"leftLabel"`
	RightLabel        string                       `json:"rightLabel"`
	Engine            string                       `json:"engine,omitempty"`
	ObjectComparisons map[string]*ObjectComparison `json:"objectComparisons"`
	Summary           Summary                      `json:"summary"`
}

// NewNamespaceComparison returns an empty result for the two labels.
func NewNamespaceComparison(leftLabel, rightLabel string) *NamespaceComparison {
	return &NamespaceComparison{
		LeftLabel:         leftLabel,
		RightLabel:        rightLabel,
		ObjectComparisons: map[string]*ObjectComparison{},
	}
}

// Add registers an object comparison under its id.
func (n *NamespaceComparison) Add(oc *ObjectComparison) {
	if oc == nil {
		return
	}
	n.ObjectComparisons[oc.ObjectID] = oc
}

// SortedIDs returns object ids in lexical order.
func (n *NamespaceComparison) SortedIDs() []string {
	if n == nil {
		return nil
	}
	ids := make([]string, 0, len(n.ObjectComparisons))
	for id := range n.ObjectComparisons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DifferenceCount totals DifferenceCount over every object.
func (n *NamespaceComparison) DifferenceCount() int {
	if n == nil {
		return 0
	}
	total := 0
	for _, oc := range n.ObjectComparisons {
		total += oc.DifferenceCount()
	}
	return total
}

// Summarize recomputes Summary from the registered object comparisons.
func (n *NamespaceComparison) Summarize() Summary {
	s := Summary{StatusCounts: map[Status]int{}}
	matched := 0
	for _, oc := range n.ObjectComparisons {
		for _, item := range oc.Items {
			s.StatusCounts[item.Status]++
		}
		diffs := oc.DifferenceCount()
		s.DifferenceCount += diffs

		switch oc.Presence {
		case PresenceBoth:
			s.TotalLeft++
			s.TotalRight++
			s.Common++
			if diffs > 0 {
				s.ObjectsWithDifferences++
			} else {
				matched++
			}
		case PresenceLeftOnly:
			s.TotalLeft++
			s.OnlyInLeft++
		case PresenceRightOnly:
			s.TotalRight++
			s.OnlyInRight++
		}
	}

	union := s.Common + s.OnlyInLeft + s.OnlyInRight
	if union == 0 {
		s.MatchPercentage = 100
	} else {
		s.MatchPercentage = float64(matched) * 100 / float64(union)
	}
	n.Summary = s
	return s
}
