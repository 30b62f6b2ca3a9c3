package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"audiophile-store/internal/domain"

	_ "embed"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

//go:embed products.json
var rawProducts []byte

// Catalog is a read-only lookup over the static product list. It is built
// once at startup and safe for concurrent use.
type Catalog struct {
	products []domain.Product
	bySlug   map[string]int
	byID     map[int64]int
}

// New builds the catalog from the embedded product data.
func New() (*Catalog, error) {
	return Load(rawProducts)
}

// Load builds a catalog from raw JSON product data.
func Load(data []byte) (*Catalog, error) {
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse product data: %w", err)
	}

	c := &Catalog{
		products: products,
		bySlug:   make(map[string]int, len(products)),
		byID:     make(map[int64]int, len(products)),
	}

	for i := range c.products {
		p := &c.products[i]
		if !domain.ValidCategory(p.Category) {
			return nil, fmt.Errorf("product %q has unknown category %q", p.Slug, p.Category)
		}
		normalizeProduct(p)

		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate product slug %q", p.Slug)
		}
		c.bySlug[p.Slug] = i
		c.byID[p.ID] = i
	}

	return c, nil
}

// All returns every product in catalog order.
func (c *Catalog) All() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// BySlug returns the product with the given slug.
func (c *Catalog) BySlug(slug string) (*domain.Product, error) {
	i, ok := c.bySlug[slug]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := c.products[i]
	return &p, nil
}

// ByID returns the product with the given id.
func (c *Catalog) ByID(id int64) (*domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := c.products[i]
	return &p, nil
}

// ByCategory returns all products in the given category, in catalog order.
func (c *Catalog) ByCategory(category domain.Category) []domain.Product {
	var out []domain.Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Related resolves the product's "others" references to full products.
// References to slugs not present in the catalog are skipped.
func (c *Catalog) Related(slug string) ([]domain.Product, error) {
	p, err := c.BySlug(slug)
	if err != nil {
		return nil, err
	}

	var out []domain.Product
	for _, other := range p.Others {
		related, err := c.BySlug(other.Slug)
		if err != nil {
			continue
		}
		out = append(out, *related)
	}
	return out, nil
}

// The raw data carries image paths with a leading "./"; strip it so paths
// can be joined onto the storefront base URL.
func fixImagePath(path string) string {
	if strings.HasPrefix(path, "./") {
		return path[1:]
	}
	return path
}

func fixImageSet(s *domain.ImageSet) {
	s.Mobile = fixImagePath(s.Mobile)
	s.Tablet = fixImagePath(s.Tablet)
	s.Desktop = fixImagePath(s.Desktop)
}

func normalizeProduct(p *domain.Product) {
	fixImageSet(&p.Image)
	fixImageSet(&p.CategoryImage)
	fixImageSet(&p.Gallery.First)
	fixImageSet(&p.Gallery.Second)
	fixImageSet(&p.Gallery.Third)
	for i := range p.Others {
		fixImageSet(&p.Others[i].Image)
	}
}
