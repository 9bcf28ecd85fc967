package history

import (
	"time"

	"github.com/ganot/atelier/internal/domain/viewed"
)

// Product is the catalog snapshot a history entry is rendered from.
type Product struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	Image     string    `json:"image" db:"image"`
	Link      string    `json:"link" db:"link"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Item converts the product into a history entry.
func (p Product) Item() viewed.TrackedItem {
	return viewed.TrackedItem{
		ID:    viewed.ItemID(p.ID),
		Name:  p.Name,
		Price: p.Price,
		Image: p.Image,
		Link:  p.Link,
	}
}

// ChangeNotifier is told when a user's history changes.
type ChangeNotifier interface {
	Notify(userID string)
}
