package perk

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// CatalogVersion is the catalog layout this package understands.
const CatalogVersion = 1

// Spec is one catalog entry: which provider to build and how.
type Spec struct {
	ID       string             `yaml:"id"`
	Kind     Kind               `yaml:"kind"`
	Name     string             `yaml:"name"`
	Tier     int                `yaml:"tier"`
	Priority *int               `yaml:"priority,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
	Requires []string           `yaml:"requires,omitempty"`
}

// EffectiveTier returns the tier clamped to [1, 2].
func (s Spec) EffectiveTier() int {
	return min(2, max(1, s.Tier))
}

// EffectivePriority returns the catalog priority, or the kind's default.
func (s Spec) EffectivePriority() int {
	if s.Priority != nil {
		return *s.Priority
	}
	if k, ok := kinds[s.Kind]; ok {
		return k.priority
	}
	return 0
}

// Param returns a parameter, falling back to the kind's default.
func (s Spec) Param(name string) float64 {
	if v, ok := s.Params[name]; ok {
		return v
	}
	return kinds[s.Kind].params[name]
}

// Flag reads a 0/1 parameter.
func (s Spec) Flag(name string) bool {
	return s.Param(name) != 0
}

func (s Spec) validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("perk has no id")
	}
	k, ok := kinds[s.Kind]
	if !ok {
		return fmt.Errorf("perk %s: unknown kind %q", s.ID, s.Kind)
	}
	for name := range s.Params {
		if _, ok := k.params[name]; !ok {
			return fmt.Errorf("perk %s: kind %s has no parameter %q", s.ID, s.Kind, name)
		}
	}
	if slices.Contains(s.Requires, s.ID) {
		return fmt.Errorf("perk %s requires itself", s.ID)
	}
	return nil
}

// Catalog is the parsed perk catalog.
type Catalog struct {
	Version int    `yaml:"version"`
	Perks   []Spec `yaml:"perks"`

	byID   map[string]int
	source []byte
}

// ParseCatalog parses and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing perk catalog: %w", err)
	}
	if c.Version != CatalogVersion {
		return nil, fmt.Errorf("perk catalog version %d, want %d", c.Version, CatalogVersion)
	}

	c.byID = make(map[string]int, len(c.Perks))
	for i, s := range c.Perks {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("validating perk catalog: %w", err)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("validating perk catalog: duplicate perk %s", s.ID)
		}
		c.byID[s.ID] = i
	}
	for _, s := range c.Perks {
		for _, req := range s.Requires {
			if _, ok := c.byID[req]; !ok {
				return nil, fmt.Errorf("validating perk catalog: perk %s requires unknown perk %s", s.ID, req)
			}
		}
	}

	c.source = slices.Clone(data)
	return &c, nil
}

// LoadCatalog reads and parses a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading perk catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// Get returns the spec with the given id.
func (c *Catalog) Get(id string) (Spec, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Spec{}, false
	}
	return c.Perks[i], true
}

// IDs returns every perk id in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.Perks))
	for i, s := range c.Perks {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of perks.
func (c *Catalog) Len() int {
	return len(c.Perks)
}

// Source returns the raw YAML the catalog was parsed from.
func (c *Catalog) Source() []byte {
	return c.source
}

// Digest returns the hex BLAKE2b-256 of the catalog source.
func (c *Catalog) Digest() string {
	sum := blake2b.Sum256(c.source)
	return hex.EncodeToString(sum[:])
}
