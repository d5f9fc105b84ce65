package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file.
type TomlFeeder struct {
	Path string
}

func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Feed decodes the whole file into structure.
func (t TomlFeeder) Feed(structure any) error {
	if _, err := toml.DecodeFile(t.Path, structure); err != nil {
		return fmt.Errorf("toml %s: %w", t.Path, err)
	}
	return nil
}

// FeedKey decodes the top-level key table into target. A missing key
// leaves target untouched.
func (t TomlFeeder) FeedKey(key string, target any) error {
	var sections map[string]toml.Primitive
	md, err := toml.DecodeFile(t.Path, &sections)
	if err != nil {
		return fmt.Errorf("toml %s: %w", t.Path, err)
	}
	section, exists := sections[key]
	if !exists {
		return nil
	}
	if err := md.PrimitiveDecode(section, target); err != nil {
		return fmt.Errorf("toml %s key %q: %w", t.Path, key, err)
	}
	return nil
}
