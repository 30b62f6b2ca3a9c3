package catalog

import (
	"testing"

	"audiophile-store/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LoadsEmbeddedCatalog(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	products := c.All()
	require.NotEmpty(t, products)

	for _, p := range products {
		assert.NotEmpty(t, p.Slug)
		assert.NotEmpty(t, p.Name)
		assert.Greater(t, p.Price, int64(0))
		assert.True(t, domain.ValidCategory(p.Category))
	}
}

func TestCatalog_BySlug(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	p, err := c.BySlug("xx99-mark-two-headphones")
	require.NoError(t, err)
	assert.Equal(t, "XX99 Mark II Headphones", p.Name)
	assert.Equal(t, domain.CategoryHeadphones, p.Category)

	_, err = c.BySlug("no-such-product")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalog_ByID(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	p, err := c.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, "yx1-wireless-earphones", p.Slug)

	_, err = c.ByID(999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalog_ByCategory(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	speakers := c.ByCategory(domain.CategorySpeakers)
	require.NotEmpty(t, speakers)
	for _, p := range speakers {
		assert.Equal(t, domain.CategorySpeakers, p.Category)
	}
}

func TestCatalog_Related(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	related, err := c.Related("zx9-speaker")
	require.NoError(t, err)
	require.NotEmpty(t, related)

	// Every resolved reference is a real catalog product
	for _, p := range related {
		_, err := c.BySlug(p.Slug)
		assert.NoError(t, err)
	}

	_, err = c.Related("no-such-product")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestLoad_NormalizesImagePaths(t *testing.T) {
	data := []byte(`[{
		"id": 1,
		"slug": "test-headphones",
		"name": "Test Headphones",
		"category": "headphones",
		"price": 100,
		"image": {
			"mobile": "./assets/mobile.jpg",
			"tablet": "./assets/tablet.jpg",
			"desktop": "/assets/desktop.jpg"
		}
	}]`)

	c, err := Load(data)
	require.NoError(t, err)

	p, err := c.BySlug("test-headphones")
	require.NoError(t, err)
	assert.Equal(t, "/assets/mobile.jpg", p.Image.Mobile)
	assert.Equal(t, "/assets/tablet.jpg", p.Image.Tablet)
	assert.Equal(t, "/assets/desktop.jpg", p.Image.Desktop)
}

func TestLoad_RejectsUnknownCategory(t *testing.T) {
	data := []byte(`[{"id": 1, "slug": "x", "name": "X", "category": "gadgets", "price": 1}]`)

	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoad_RejectsDuplicateSlugs(t *testing.T) {
	data := []byte(`[
		{"id": 1, "slug": "x", "name": "X", "category": "headphones", "price": 1},
		{"id": 2, "slug": "x", "name": "X2", "category": "speakers", "price": 2}
	]`)

	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoad_RelatedSkipsDanglingReferences(t *testing.T) {
	data := []byte(`[{
		"id": 1,
		"slug": "a",
		"name": "A",
		"category": "headphones",
		"price": 1,
		"others": [
			{"slug": "missing", "name": "Missing"},
			{"slug": "a", "name": "A"}
		]
	}]`)

	c, err := Load(data)
	require.NoError(t, err)

	related, err := c.Related("a")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "a", related[0].Slug)
}
