package cart

import "strings"

// Line is one product-plus-quantity entry. Price and display fields are a
// snapshot taken when the line was first added.
type Line struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Color    string  `json:"color,omitempty"`
	Size     string  `json:"size,omitempty"`
	Quantity int     `json:"quantity"`
}

// Total returns price × quantity.
func (l Line) Total() float64 {
	return l.Price * float64(l.Quantity)
}

// Product is the catalog data a page hands to the cart.
type Product struct {
	ID    string
	Name  string
	Price float64
	Image string
}

// AddOptions carries the requested amount and the selected variant.
// A zero Quantity means 1.
type AddOptions struct {
	Quantity int
	Color    string
	Size     string
}

// KeyFunc derives the identity of a line.
type KeyFunc func(Line) string

// KeyByID treats the product id as the only identity; variants of the same
// product share one line.
func KeyByID(l Line) string {
	return l.ID
}

// KeyByVariant gives every (id, color, size) combination its own line.
func KeyByVariant(l Line) string {
	return strings.Join([]string{l.ID, l.Color, l.Size}, "|")
}

// Snapshot is the read-only view handed to observers.
type Snapshot struct {
	Lines      []Line
	TotalItems int
	TotalPrice float64
	Open       bool
}
