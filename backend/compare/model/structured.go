package model

// StructuredObject is one configuration object with its original shape preserved.
// Data is Null unless the kind carries config/secret-like payloads.
type StructuredObject struct {
	Kind       string `json:"kind"`
	APIVersion string `json:"apiVersion"`
	Name       string `json:"name"`
	Namespace  string `json:"namespace,omitempty"`
	Metadata   Value  `json:"metadata"`
	Spec       Value  `json:"spec"`
	Data       Value  `json:"data"`
}

// Section returns the named top-level section, or Null for unknown names.
func (o *StructuredObject) Section(name string) Value {
	if o == nil {
		return Null()
	}
	switch name {
	case SectionMetadata:
		return o.Metadata
	case SectionSpec:
		return o.Spec
	case SectionData:
		return o.Data
	default:
		return Null()
	}
}

// StructuredNamespace groups structured objects by object key. A nil entry marks an
// object the collector saw but could not materialise.
type StructuredNamespace struct {
	Name        string                       `json:"name"`
	ClusterName string                       `json:"clusterName,omitempty"`
	Objects     map[string]*StructuredObject `json:"objects"`
}

// NewStructuredNamespace returns an empty namespace ready for Add.
func NewStructuredNamespace(name, clusterName string) *StructuredNamespace {
	return &StructuredNamespace{Name: name, ClusterName: clusterName, Objects: map[string]*StructuredObject{}}
}

// Add stores obj under key, replacing any previous entry.
func (n *StructuredNamespace) Add(key string, obj *StructuredObject) {
	if n.Objects == nil {
		n.Objects = map[string]*StructuredObject{}
	}
	n.Objects[key] = obj
}

// Lookup returns the object under key and whether the key is registered at all.
func (n *StructuredNamespace) Lookup(key string) (*StructuredObject, bool) {
	if n == nil {
		return nil, false
	}
	obj, ok := n.Objects[key]
	return obj, ok
}

// Keys returns every registered object key.
func (n *StructuredNamespace) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.Objects))
	for k := range n.Objects {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot carries one namespace in both representations so either engine can run
// against it. Collectors fill whichever forms they can produce.
type Snapshot struct {
	Name        string               `json:"name"`
	ClusterName string               `json:"clusterName,omitempty"`
	Flat        *FlatNamespace       `json:"flat,omitempty"`
	Structured  *StructuredNamespace `json:"structured,omitempty"`
}
