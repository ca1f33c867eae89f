package trolley

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectorsYAML []byte

// Selectors holds the CSS selector cascades used to read a search page
type Selectors struct {
	Items       []string `yaml:"items"`
	Brand       []string `yaml:"brand"`
	Description []string `yaml:"description"`
	Size        []string `yaml:"size"`
	SizeValue   string   `yaml:"size_value"`
	Quantity    []string `yaml:"quantity"`
	Price       []string `yaml:"price"`
	Link        string   `yaml:"link"`
}

// DefaultSelectors returns the embedded selector set
func DefaultSelectors() Selectors {
	var sel Selectors
	if err := yaml.Unmarshal(defaultSelectorsYAML, &sel); err != nil {
		panic(fmt.Sprintf("embedded selectors.yaml is invalid: %v", err))
	}
	return sel
}

// LoadSelectors reads an override file. Keys missing from the file keep their
// default value. An empty path returns the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Selectors{}, fmt.Errorf("failed to read selectors file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return Selectors{}, fmt.Errorf("failed to parse selectors file: %w", err)
	}
	if len(sel.Items) == 0 {
		return Selectors{}, fmt.Errorf("selectors file %s: items must not be empty", path)
	}
	return sel, nil
}
