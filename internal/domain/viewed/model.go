package viewed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxItems bounds every materialized recently viewed list.
const MaxItems = 10

// ItemID identifies a product. Numeric and string ids compare by their
// string form.
type ItemID string

// UnmarshalJSON accepts both JSON strings and numbers.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

func (id ItemID) String() string { return string(id) }

// TrackedItem is one entry of the recently viewed history. Only ID takes part
// in equality; the other fields are display data.
type TrackedItem struct {
	ID    ItemID  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
	Link  string  `json:"link"`
}

// Key returns the identity used for deduplication.
func (t TrackedItem) Key() string {
	return string(t.ID)
}

// ProductView is what a product page reports when it is shown. Fields may be
// missing; Price is a pointer so an absent price is distinguishable from zero.
type ProductView struct {
	ID    ItemID   `json:"id"`
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	Image string   `json:"image"`
	Link  string   `json:"link"`
}

// Item converts a complete view into a TrackedItem. ok is false when any of
// id, name, price, image or link is missing.
func (p ProductView) Item() (TrackedItem, bool) {
	if strings.TrimSpace(string(p.ID)) == "" ||
		strings.TrimSpace(p.Name) == "" ||
		p.Price == nil ||
		strings.TrimSpace(p.Image) == "" ||
		strings.TrimSpace(p.Link) == "" {
		return TrackedItem{}, false
	}
	return TrackedItem{
		ID:    p.ID,
		Name:  p.Name,
		Price: *p.Price,
		Image: p.Image,
		Link:  p.Link,
	}, true
}

// ViewOf builds a complete ProductView from a TrackedItem.
func ViewOf(item TrackedItem) ProductView {
	price := item.Price
	return ProductView{
		ID:    item.ID,
		Name:  item.Name,
		Price: &price,
		Image: item.Image,
		Link:  item.Link,
	}
}
