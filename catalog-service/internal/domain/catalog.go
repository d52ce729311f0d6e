package domain

import "time"

// Canteen is a seller on campus. OwnerID is the user account that manages it.
type Canteen struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	OwnerID     string    `json:"owner_id"`
	IsOpen      bool      `json:"is_open"`
	CreatedAt   time.Time `json:"created_at"`
}

// MenuItem carries its canteen's name and open flag so one lookup is
// enough to decide whether it can be ordered.
type MenuItem struct {
	ID          string    `json:"id"`
	CanteenID   string    `json:"canteen_id"`
	CanteenName string    `json:"canteen_name"`
	CanteenOpen bool      `json:"canteen_is_open"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	IsAvailable bool      `json:"is_available"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MenuItemPatch carries the fields a seller changes; nil means unchanged.
type MenuItemPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	IsAvailable *bool    `json:"is_available"`
	ImageURL    *string  `json:"image_url"`
}

func (p MenuItemPatch) Apply(item *MenuItem) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.IsAvailable != nil {
		item.IsAvailable = *p.IsAvailable
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
}
