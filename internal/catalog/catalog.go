// Package catalog holds the sample board documents shipped with the binary.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// RefSeparator joins a category and a document name in a reference.
const RefSeparator = " / "

var ErrNotFound = errors.New("document not found")

type Document struct {
	Category string `yaml:"-"`
	Name     string `yaml:"name"`
	Text     string `yaml:"text"`
}

// Ref returns the "Category / Document" reference for d.
func (d Document) Ref() string {
	return d.Category + RefSeparator + d.Name
}

type Category struct {
	Name      string     `yaml:"name"`
	Documents []Document `yaml:"documents"`
}

type Catalog struct {
	categories []Category
}

type file struct {
	Categories []Category `yaml:"categories"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse(embedded)
})

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog. Order is preserved.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}

	seen := make(map[string]bool)
	for i := range f.Categories {
		cat := &f.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		if err := validateName(cat.Name); err != nil {
			return nil, fmt.Errorf("category %d: %w", i+1, err)
		}
		if seen[strings.ToLower(cat.Name)] {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[strings.ToLower(cat.Name)] = true

		docs := make(map[string]bool)
		for j := range cat.Documents {
			doc := &cat.Documents[j]
			doc.Name = strings.TrimSpace(doc.Name)
			doc.Category = cat.Name
			if err := validateName(doc.Name); err != nil {
				return nil, fmt.Errorf("%s document %d: %w", cat.Name, j+1, err)
			}
			if docs[strings.ToLower(doc.Name)] {
				return nil, fmt.Errorf("duplicate document %q in %s", doc.Name, cat.Name)
			}
			docs[strings.ToLower(doc.Name)] = true
			if strings.TrimSpace(doc.Text) == "" {
				return nil, fmt.Errorf("document %q has no text", doc.Ref())
			}
		}
	}
	return &Catalog{categories: f.Categories}, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	if strings.Contains(name, strings.TrimSpace(RefSeparator)) {
		return fmt.Errorf("name %q must not contain %q", name, strings.TrimSpace(RefSeparator))
	}
	return nil
}

func (c *Catalog) Categories() []string {
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return names
}

func (c *Catalog) category(name string) (Category, bool) {
	for _, cat := range c.categories {
		if strings.EqualFold(cat.Name, strings.TrimSpace(name)) {
			return cat, true
		}
	}
	return Category{}, false
}

// Documents returns the documents of a category in catalog order.
func (c *Catalog) Documents(category string) ([]Document, error) {
	cat, ok := c.category(category)
	if !ok {
		return nil, fmt.Errorf("unknown category %q (expected one of: %s)", category, strings.Join(c.Categories(), ", "))
	}
	return append([]Document(nil), cat.Documents...), nil
}

// All returns every document in catalog order.
func (c *Catalog) All() []Document {
	var out []Document
	for _, cat := range c.categories {
		out = append(out, cat.Documents...)
	}
	return out
}

// Lookup finds a document by category and name, ignoring case.
func (c *Catalog) Lookup(category, name string) (Document, error) {
	docs, err := c.Documents(category)
	if err != nil {
		return Document{}, err
	}
	for _, d := range docs {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return Document{}, fmt.Errorf("%w: %s%s%s", ErrNotFound, category, RefSeparator, name)
}

// Resolve looks up a "Category / Document" reference.
func (c *Catalog) Resolve(ref string) (Document, error) {
	category, name, err := ParseRef(ref)
	if err != nil {
		return Document{}, err
	}
	return c.Lookup(category, name)
}

// ParseRef splits a "Category / Document" reference. Whitespace around the
// slash is optional.
func ParseRef(ref string) (category, name string, err error) {
	before, after, ok := strings.Cut(ref, "/")
	category, name = strings.TrimSpace(before), strings.TrimSpace(after)
	if !ok || category == "" || name == "" {
		return "", "", fmt.Errorf("invalid document reference %q (expected \"Category / Document\")", ref)
	}
	return category, name, nil
}
