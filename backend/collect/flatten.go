/*
 * backend/collect/flatten.go
 *
 * Converts Kubernetes objects into the two comparison representations.
 * - Sections: metadata, spec (or the remaining top-level fields), data.
 * - Flatten writes dotted paths with [i] list indices; Structure keeps the tree.
 */

package collect

import (
	"encoding/base64"
	"sort"
	"strconv"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/luxury-yacht/driftcheck/backend/compare/model"
)

// configKinds carry key/value payloads that are compared under the data section.
var configKinds = map[string]bool{
	"ConfigMap": true,
	"Secret":    true,
}

// topLevelSkipped never contributes to the spec section.
var topLevelSkipped = map[string]bool{
	"apiVersion": true,
	"kind":       true,
	"metadata":   true,
	"status":     true,
	"data":       true,
	"binaryData": true,
	"stringData": true,
}

// metadataStripped are server bookkeeping fields too large or too volatile to keep.
var metadataStripped = []string{"managedFields"}

type sections struct {
	metadata map[string]any
	spec     map[string]any
	data     map[string]any
}

func extractSections(u *unstructured.Unstructured) sections {
	obj := u.UnstructuredContent()
	var out sections

	if meta, ok := obj["metadata"].(map[string]any); ok {
		out.metadata = make(map[string]any, len(meta))
		for k, v := range meta {
			out.metadata[k] = v
		}
		for _, field := range metadataStripped {
			delete(out.metadata, field)
		}
	}

	if spec, ok := obj["spec"].(map[string]any); ok {
		out.spec = spec
	} else {
		for k, v := range obj {
			if topLevelSkipped[k] {
				continue
			}
			if out.spec == nil {
				out.spec = map[string]any{}
			}
			out.spec[k] = v
		}
	}

	if configKinds[u.GetKind()] {
		out.data = configData(u.GetKind(), obj)
	}
	return out
}

// configData merges data, binaryData and (for Secrets) stringData into one table.
// stringData is base64 encoded so manifests compare equal to what the API server stores.
func configData(kind string, obj map[string]any) map[string]any {
	data := map[string]any{}
	for _, field := range []string{"binaryData", "data"} {
		if values, ok := obj[field].(map[string]any); ok {
			for k, v := range values {
				data[k] = v
			}
		}
	}
	if kind == "Secret" {
		if values, ok := obj["stringData"].(map[string]any); ok {
			for k, v := range values {
				if s, ok := v.(string); ok {
					data[k] = base64.StdEncoding.EncodeToString([]byte(s))
				}
			}
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// Flatten builds the path/value representation of u.
func Flatten(u *unstructured.Unstructured) *model.FlatObject {
	if u == nil {
		return nil
	}
	s := extractSections(u)
	return &model.FlatObject{
		Kind:       u.GetKind(),
		APIVersion: u.GetAPIVersion(),
		Name:       u.GetName(),
		Namespace:  u.GetNamespace(),
		Metadata:   flattenMap(s.metadata),
		Spec:       flattenMap(s.spec),
		Data:       flattenMap(s.data),
	}
}

// Structure builds the tree representation of u.
func Structure(u *unstructured.Unstructured) *model.StructuredObject {
	if u == nil {
		return nil
	}
	s := extractSections(u)
	obj := &model.StructuredObject{
		Kind:       u.GetKind(),
		APIVersion: u.GetAPIVersion(),
		Name:       u.GetName(),
		Namespace:  u.GetNamespace(),
		Metadata:   model.ValueOf(s.metadata),
		Spec:       model.ValueOf(s.spec),
	}
	if s.data != nil {
		obj.Data = model.ValueOf(s.data)
	}
	return obj
}

func flattenMap(in map[string]any) map[string]string {
	out := map[string]string{}
	for _, k := range sortedKeys(in) {
		flattenValue(out, k, in[k])
	}
	return out
}

// flattenValue skips null leaves. Empty containers are kept as "{}" or "[]" so their
// presence is still visible to a field-by-field comparison.
func flattenValue(out map[string]string, path string, v any) {
	switch t := v.(type) {
	case nil:
		return
	case map[string]any:
		if len(t) == 0 {
			out[path] = "{}"
			return
		}
		for _, k := range sortedKeys(t) {
			flattenValue(out, path+"."+k, t[k])
		}
	case []any:
		if len(t) == 0 {
			out[path] = "[]"
			return
		}
		for i, item := range t {
			flattenValue(out, path+"["+strconv.Itoa(i)+"]", item)
		}
	default:
		out[path] = model.FormatScalar(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
