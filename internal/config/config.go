// Package config loads the augmentation configuration: a document whose
// top-level keys are strategy names and whose values are that strategy's
// construction parameters.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for structurally invalid documents.
var ErrInvalidConfig = errors.New("config: invalid augmentation config")

// Entry is one configured strategy.
type Entry struct {
	Name   string
	params *yaml.Node
}

// Decode strictly decodes the entry's parameters into v: unknown keys are
// rejected. A strategy with no parameters decodes into v's zero value.
func (e Entry) Decode(v any) error {
	if e.params == nil {
		return nil
	}
	raw, err := yaml.Marshal(e.params)
	if err != nil {
		return fmt.Errorf("%s: %w", e.Name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s: %w", e.Name, err)
	}
	return nil
}

// AugmentationConfig is the ordered list of configured strategies. Document
// order is preserved and defines how selection weights line up with
// strategies. It is immutable once loaded.
type AugmentationConfig struct {
	entries []Entry
}

// Load reads a YAML or JSON file.
func Load(path string) (*AugmentationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON, a YAML subset) document.
func Parse(data []byte) (*AugmentationConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of strategy names", ErrInvalidConfig)
	}

	cfg := &AugmentationConfig{}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		name := key.Value
		if seen[name] {
			return nil, fmt.Errorf("%w: strategy %q configured twice", ErrInvalidConfig, name)
		}
		seen[name] = true

		var params *yaml.Node
		switch {
		case val.Kind == yaml.MappingNode:
			params = val
		case val.Kind == yaml.ScalarNode && val.Tag == "!!null":
		default:
			return nil, fmt.Errorf("%w: parameters of %q must be a mapping", ErrInvalidConfig, name)
		}
		cfg.entries = append(cfg.entries, Entry{Name: name, params: params})
	}
	if len(cfg.entries) == 0 {
		return nil, fmt.Errorf("%w: no strategies configured", ErrInvalidConfig)
	}
	return cfg, nil
}

// FromMap builds a config from an in-memory mapping. order fixes the strategy
// order; every name in order must be present in params.
func FromMap(order []string, params map[string]map[string]any) (*AugmentationConfig, error) {
	if len(order) != len(params) {
		return nil, fmt.Errorf("%w: order lists %d strategies, mapping has %d", ErrInvalidConfig, len(order), len(params))
	}
	cfg := &AugmentationConfig{}
	for _, name := range order {
		p, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q missing from mapping", ErrInvalidConfig, name)
		}
		var node yaml.Node
		if err := node.Encode(p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
		cfg.entries = append(cfg.entries, Entry{Name: name, params: &node})
	}
	if len(cfg.entries) == 0 {
		return nil, fmt.Errorf("%w: no strategies configured", ErrInvalidConfig)
	}
	return cfg, nil
}

// Entries returns the configured strategies in order.
func (c *AugmentationConfig) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the strategy names in order.
func (c *AugmentationConfig) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}

// Len returns the number of configured strategies.
func (c *AugmentationConfig) Len() int { return len(c.entries) }
