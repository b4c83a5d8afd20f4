package collect

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

// ObjectKey identifies an object within a namespace snapshot.
func ObjectKey(u *unstructured.Unstructured) string {
	return u.GetKind() + "/" + u.GetName()
}

// Build converts objs into a snapshot carrying both representations. Objects that share
// a key overwrite earlier ones; nil entries are skipped.
func Build(name, clusterName string, objs []*unstructured.Unstructured) *model.Snapshot {
	snap := &model.Snapshot{
		Name:        name,
		ClusterName: clusterName,
		Flat:        model.NewFlatNamespace(name, clusterName),
		Structured:  model.NewStructuredNamespace(name, clusterName),
	}
	for _, u := range objs {
		if u == nil {
			continue
		}
		key := ObjectKey(u)
		snap.Flat.Add(key, Flatten(u))
		snap.Structured.Add(key, Structure(u))
	}
	return snap
}
