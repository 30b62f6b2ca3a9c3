package domain

// Category is one of the fixed set of product categories in the catalog.
type Category string

const (
	CategoryHeadphones Category = "headphones"
	CategorySpeakers   Category = "speakers"
	CategoryEarphones  Category = "earphones"
)

// ValidCategory reports whether c is a known catalog category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryHeadphones, CategorySpeakers, CategoryEarphones:
		return true
	}
	return false
}

// ImageSet holds the image variants per display breakpoint.
type ImageSet struct {
	Mobile  string `json:"mobile"`
	Tablet  string `json:"tablet"`
	Desktop string `json:"desktop"`
}

// IncludedItem is one entry of a product's "in the box" list.
type IncludedItem struct {
	Quantity int    `json:"quantity"`
	Item     string `json:"item"`
}

// Gallery is the three image sets shown on a product page.
type Gallery struct {
	First  ImageSet `json:"first"`
	Second ImageSet `json:"second"`
	Third  ImageSet `json:"third"`
}

// RelatedProduct is a weak reference (by slug) to another catalog product,
// used only for display. It is not an ownership relationship.
type RelatedProduct struct {
	Slug  string   `json:"slug"`
	Name  string   `json:"name"`
	Image ImageSet `json:"image"`
}

// Product represents one catalog entry. Products are loaded once from the
// embedded catalog data and never mutated at runtime.
type Product struct {
	ID            int64            `json:"id"`
	Slug          string           `json:"slug"`
	Name          string           `json:"name"`
	Image         ImageSet         `json:"image"`
	Category      Category         `json:"category"`
	CategoryImage ImageSet         `json:"categoryImage"`
	New           bool             `json:"new"`
	Price         int64            `json:"price"`
	Description   string           `json:"description"`
	Features      string           `json:"features"`
	Includes      []IncludedItem   `json:"includes"`
	Gallery       Gallery          `json:"gallery"`
	Others        []RelatedProduct `json:"others"`
}
