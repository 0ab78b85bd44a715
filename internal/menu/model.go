package menu

import (
	"time"

	"github.com/Abdullraaa/mai-inji/internal/money"
)

type Item struct {
	ID          string     `json:"id"`
	CategoryID  string     `json:"category_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Price       money.Kobo `json:"price"`
	IsAvailable bool       `json:"is_available"`
	ImageURL    string     `json:"image_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ItemUpdate carries a partial admin edit; nil fields are left unchanged.
type ItemUpdate struct {
	Price       *money.Kobo `json:"price"`
	IsAvailable *bool       `json:"is_available"`
	Description *string     `json:"description"`
}
