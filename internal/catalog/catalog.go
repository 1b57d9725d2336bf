// Package catalog serves the read-only reference list of AYUSH disease codes.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayushhealth/go-ayush/internal/apperr"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

// DefaultLimit is the page size used when a caller does not supply one.
const DefaultLimit = 50

// Disease is a reference disease record coded in ICD-11 and NAMASTE (TM2).
type Disease struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	ICD         string   `json:"icd" yaml:"icd"`
	TM2         string   `json:"tm2" yaml:"tm2"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Synonyms    []string `json:"synonyms" yaml:"synonyms"`
}

// Filter narrows a catalog listing.
type Filter struct {
	Query    string
	Category string
	Page     pagination.Params
}

// Catalog is an immutable, ordered set of diseases. Safe for concurrent use.
type Catalog struct {
	diseases []Disease
	byID     map[string]int
}

// New builds a catalog from records, rejecting duplicate or empty ids.
func New(diseases []Disease) (*Catalog, error) {
	if len(diseases) == 0 {
		return nil, fmt.Errorf("disease catalog is empty")
	}

	c := &Catalog{
		diseases: make([]Disease, len(diseases)),
		byID:     make(map[string]int, len(diseases)),
	}
	for i, d := range diseases {
		if d.ID == "" {
			return nil, fmt.Errorf("disease at index %d has no id", i)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate disease id %q", d.ID)
		}
		if d.Synonyms == nil {
			d.Synonyms = []string{}
		}
		c.diseases[i] = d
		c.byID[d.ID] = i
	}
	return c, nil
}

// Default returns the built-in AYUSH seed catalog.
func Default() *Catalog {
	c, err := New(seed())
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Diseases []Disease `yaml:"diseases"`
}

// LoadFile reads a YAML catalog of the form `diseases: [...]`.
func LoadFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(f.Diseases)
}

// Load returns the catalog at path, or the seed catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// List returns the page of diseases matching f and the pagination metadata.
func (c *Catalog) List(f Filter) ([]Disease, pagination.Meta) {
	term := strings.ToLower(f.Query)

	matched := make([]Disease, 0, len(c.diseases))
	for _, d := range c.diseases {
		if term != "" && !d.matches(term) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(d.Category, f.Category) {
			continue
		}
		matched = append(matched, d)
	}

	return pagination.Apply(matched, f.Page)
}

// Get returns the disease with the exact id.
func (c *Catalog) Get(id string) (*Disease, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, apperr.NotFound("Disease not found")
	}
	d := c.diseases[i]
	return &d, nil
}

// Lookup returns the disease with id, or nil.
func (c *Catalog) Lookup(id string) *Disease {
	d, err := c.Get(id)
	if err != nil {
		return nil
	}
	return d
}

// Categories returns the distinct categories in first-occurrence order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, d := range c.diseases {
		if _, ok := seen[d.Category]; ok {
			continue
		}
		seen[d.Category] = struct{}{}
		categories = append(categories, d.Category)
	}
	return categories
}

// Len returns the number of diseases.
func (c *Catalog) Len() int {
	return len(c.diseases)
}

// All returns a copy of every disease in catalog order.
func (c *Catalog) All() []Disease {
	out := make([]Disease, len(c.diseases))
	copy(out, c.diseases)
	return out
}

// matches reports whether lowerTerm occurs in the name, a synonym or the description.
func (d Disease) matches(lowerTerm string) bool {
	if strings.Contains(strings.ToLower(d.Name), lowerTerm) {
		return true
	}
	for _, s := range d.Synonyms {
		if strings.Contains(strings.ToLower(s), lowerTerm) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(d.Description), lowerTerm)
}
