package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML file.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Path: filePath}
}

// Feed decodes the whole file into structure.
func (y YamlFeeder) Feed(structure any) error {
	root, err := y.document()
	if err != nil {
		return err
	}
	if root == nil {
		return nil
	}
	if err := root.Decode(structure); err != nil {
		return fmt.Errorf("yaml %s: %w", y.Path, err)
	}
	return nil
}

// FeedKey decodes the top-level key section into target. A missing key
// leaves target untouched.
func (y YamlFeeder) FeedKey(key string, target any) error {
	root, err := y.document()
	if err != nil || root == nil {
		return err
	}
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("yaml %s: %w", y.Path, ErrSectionNotMapping)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != key {
			continue
		}
		if err := root.Content[i+1].Decode(target); err != nil {
			return fmt.Errorf("yaml %s key %q: %w", y.Path, key, err)
		}
		return nil
	}
	return nil
}

func (y YamlFeeder) document() (*yaml.Node, error) {
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml %s: %w", y.Path, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	return doc.Content[0], nil
}
