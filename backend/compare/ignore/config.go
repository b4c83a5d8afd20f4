package ignore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// DefaultPatterns suppresses the namespace and server-managed fields, none of which
// describe intent.
var DefaultPatterns = []string{
	"metadata.namespace",
	"metadata.managedFields",
	"metadata.resourceVersion",
	"metadata.uid",
	"metadata.generation",
	"metadata.creationTimestamp",
	"metadata.selfLink",
	"*kubectl.kubernetes.io/last-applied-configuration",
	"*deployment.kubernetes.io/revision",
	"status",
}

// FileConfig is the on-disk ignore configuration. JSON documents parse as well.
type FileConfig struct {
	IgnoreFields []string `yaml:"ignoreFields" json:"ignoreFields"`
	// IncludeDefaults prepends DefaultPatterns to IgnoreFields.
	IncludeDefaults bool `yaml:"includeDefaults,omitempty" json:"includeDefaults,omitempty"`
}

// Parse decodes an ignore configuration document.
func Parse(data []byte) (*FileConfig, error) {
	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ignore config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and parses an ignore configuration from disk.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore config %s: %w", path, err)
	}
	return Parse(data)
}

// Matcher builds the matcher described by the configuration.
func (c *FileConfig) Matcher() *Matcher {
	if c == nil {
		return New(nil)
	}
	patterns := make([]string, 0, len(DefaultPatterns)+len(c.IgnoreFields))
	if c.IncludeDefaults {
		patterns = append(patterns, DefaultPatterns...)
	}
	patterns = append(patterns, c.IgnoreFields...)
	return New(patterns)
}

// Marshal renders the configuration back to YAML, preserving pattern order.
func (c *FileConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
