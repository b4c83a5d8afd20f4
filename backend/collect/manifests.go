/*
 * backend/collect/manifests.go
 *
 * Reads Kubernetes manifests from files and streams.
 * - Multi-document YAML and JSON, List kinds expanded.
 * - Directories are walked for .yaml, .yml and .json files.
 */

package collect

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"
)

var manifestExtensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// ParseManifests decodes every object in r. Objects without a namespace get
// defaultNamespace. Empty documents are skipped.
func ParseManifests(r io.Reader, defaultNamespace string) ([]*unstructured.Unstructured, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))

	var objects []*unstructured.Unstructured
	for index := 0; ; index++ {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", index, err)
		}
		if len(strings.TrimSpace(string(doc))) == 0 {
			continue
		}

		var content map[string]any
		if err := yaml.Unmarshal(doc, &content); err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", index, err)
		}
		if len(content) == 0 {
			continue
		}

		expanded, err := expandDocument(content, defaultNamespace)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", index, err)
		}
		objects = append(objects, expanded...)
	}
	return objects, nil
}

// ParseManifestString is ParseManifests over an in-memory manifest.
func ParseManifestString(manifest, defaultNamespace string) ([]*unstructured.Unstructured, error) {
	return ParseManifests(strings.NewReader(manifest), defaultNamespace)
}

func expandDocument(content map[string]any, defaultNamespace string) ([]*unstructured.Unstructured, error) {
	u := &unstructured.Unstructured{Object: content}
	kind := u.GetKind()
	if kind == "" {
		return nil, errors.New("object has no kind")
	}

	if strings.HasSuffix(kind, "List") {
		if items, ok := content["items"].([]any); ok {
			var out []*unstructured.Unstructured
			for i, item := range items {
				itemContent, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("list item %d is not an object", i)
				}
				expanded, err := expandDocument(itemContent, defaultNamespace)
				if err != nil {
					return nil, fmt.Errorf("list item %d: %w", i, err)
				}
				out = append(out, expanded...)
			}
			return out, nil
		}
	}

	if u.GetName() == "" {
		return nil, fmt.Errorf("%s has no metadata.name", kind)
	}
	if u.GetNamespace() == "" && defaultNamespace != "" {
		u.SetNamespace(defaultNamespace)
	}
	return []*unstructured.Unstructured{u}, nil
}

// LoadManifests reads a manifest file, or every manifest file below a directory in
// lexical order.
func LoadManifests(path, defaultNamespace string) ([]*unstructured.Unstructured, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifests %s: %w", path, err)
	}
	if !info.IsDir() {
		return loadManifestFile(path, defaultNamespace)
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !manifestExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk manifests %s: %w", path, err)
	}
	sort.Strings(files)

	var objects []*unstructured.Unstructured
	for _, file := range files {
		loaded, err := loadManifestFile(file, defaultNamespace)
		if err != nil {
			return nil, err
		}
		objects = append(objects, loaded...)
	}
	return objects, nil
}

func loadManifestFile(path, defaultNamespace string) ([]*unstructured.Unstructured, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer f.Close()

	objects, err := ParseManifests(f, defaultNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return objects, nil
}

// FilterNamespace keeps objects in namespace. Cluster scoped objects (no namespace) are dropped.
func FilterNamespace(objs []*unstructured.Unstructured, namespace string) []*unstructured.Unstructured {
	if namespace == "" {
		return objs
	}
	out := make([]*unstructured.Unstructured, 0, len(objs))
	for _, u := range objs {
		if u.GetNamespace() == namespace {
			out = append(out, u)
		}
	}
	return out
}
