package model

import "strings"

// Section names used as path prefixes in combined views and structured diffs.
const (
	SectionMetadata = "metadata"
	SectionSpec     = "spec"
	SectionData     = "data"
)

// Sections lists the comparable sections in comparison order.
var Sections = []string{SectionMetadata, SectionSpec, SectionData}

// PathFilter reports whether a field path should be left out of a comparison.
// *ignore.Matcher satisfies it.
type PathFilter interface {
	ShouldIgnore(path string) bool
}

// FlatObject is one configuration object as three path→value tables.
// Keys carry no section prefix; list elements are encoded as name[index].
type FlatObject struct {
	Kind       string            `json:"kind"`
	APIVersion string            `json:"apiVersion"`
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Spec       map[string]string `json:"spec,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// Fields merges the three tables into one view keyed "metadata.x", "spec.x", "data.x".
func (o *FlatObject) Fields() map[string]string {
	if o == nil {
		return nil
	}
	out := make(map[string]string, len(o.Metadata)+len(o.Spec)+len(o.Data))
	addSection(out, SectionMetadata, o.Metadata)
	addSection(out, SectionSpec, o.Spec)
	addSection(out, SectionData, o.Data)
	return out
}

// FilteredFields is Fields minus every combined key the filter rejects.
func (o *FlatObject) FilteredFields(filter PathFilter) map[string]string {
	fields := o.Fields()
	if filter == nil || fields == nil {
		return fields
	}
	for key := range fields {
		if filter.ShouldIgnore(key) {
			delete(fields, key)
		}
	}
	return fields
}

// FieldCount is the total number of entries across all three tables.
func (o *FlatObject) FieldCount() int {
	if o == nil {
		return 0
	}
	return len(o.Metadata) + len(o.Spec) + len(o.Data)
}

func addSection(dst map[string]string, section string, fields map[string]string) {
	for key, value := range fields {
		dst[section+"."+key] = value
	}
}

// SplitSectionKey separates a combined key into its section and table key.
func SplitSectionKey(key string) (section, rest string, ok bool) {
	section, rest, ok = strings.Cut(key, ".")
	if !ok {
		return "", key, false
	}
	switch section {
	case SectionMetadata, SectionSpec, SectionData:
		return section, rest, true
	default:
		return "", key, false
	}
}

// FlatNamespace groups flattened objects by object key. A nil entry marks an object
// the collector saw but could not materialise.
type FlatNamespace struct {
	Name        string                 `json:"name"`
	ClusterName string                 `json:"clusterName,omitempty"`
	Objects     map[string]*FlatObject `json:"objects"`
}

// NewFlatNamespace returns an empty namespace ready for Add.
func NewFlatNamespace(name, clusterName string) *FlatNamespace {
	return &FlatNamespace{Name: name, ClusterName: clusterName, Objects: map[string]*FlatObject{}}
}

// Add stores obj under key, replacing any previous entry.
func (n *FlatNamespace) Add(key string, obj *FlatObject) {
	if n.Objects == nil {
		n.Objects = map[string]*FlatObject{}
	}
	n.Objects[key] = obj
}

// Lookup returns the object under key and whether the key is registered at all.
func (n *FlatNamespace) Lookup(key string) (*FlatObject, bool) {
	if n == nil {
		return nil, false
	}
	obj, ok := n.Objects[key]
	return obj, ok
}

// Keys returns every registered object key.
func (n *FlatNamespace) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.Objects))
	for k := range n.Objects {
		keys = append(keys, k)
	}
	return keys
}
