package domain

// CartItem is one product entry in a shopping cart. Price and Image are
// snapshots taken when the item was added; later catalog changes do not
// affect them. A cart holds at most one CartItem per product id.
type CartItem struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image"`
}
