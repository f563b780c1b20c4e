package model

import (
	"strings"
	"time"
)

// Item is a lost or found report.
type Item struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	EventDate   string    `json:"event_date"`
	ImageURL    string    `json:"image_url,omitempty"`
	Status      string    `json:"status"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	Owner *PublicUser `json:"owner,omitempty"`
}

// Item statuses.
const (
	ItemStatusLost      = "lost"
	ItemStatusFound     = "found"
	ItemStatusRecovered = "recovered"
)

// NewItem is the creation form for an item report.
type NewItem struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=5000"`
	Category    string `json:"category" validate:"required,max=100"`
	Location    string `json:"location" validate:"required,max=200"`
	EventDate   string `json:"event_date" validate:"required,datetime=2006-01-02"`
	Status      string `json:"status" validate:"omitempty,oneof=lost found"`
}

// TrimSpace trims surrounding whitespace from the free-text fields.
func (n *NewItem) TrimSpace() {
	n.Title = strings.TrimSpace(n.Title)
	n.Description = strings.TrimSpace(n.Description)
	n.Category = strings.TrimSpace(n.Category)
	n.Location = strings.TrimSpace(n.Location)
}

// ItemPatch enumerates every field an owner may change. Nil fields are left as they are.
type ItemPatch struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=100"`
	Description *string `json:"description" validate:"omitnil,min=1,max=5000"`
	Category    *string `json:"category" validate:"omitnil,min=1,max=100"`
	Location    *string `json:"location" validate:"omitnil,min=1,max=200"`
	EventDate   *string `json:"event_date" validate:"omitnil,datetime=2006-01-02"`
	Status      *string `json:"status" validate:"omitnil,oneof=lost found recovered"`
	ImageURL    *string `json:"image_url" validate:"omitnil,max=2048"`
}

// TrimSpace trims surrounding whitespace from the set free-text fields.
func (p *ItemPatch) TrimSpace() {
	for _, f := range []*string{p.Title, p.Description, p.Category, p.Location} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// Apply copies the set fields of the patch onto item.
func (p *ItemPatch) Apply(item *Item) {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Location != nil {
		item.Location = *p.Location
	}
	if p.EventDate != nil {
		item.EventDate = *p.EventDate
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
}

// ItemFilter narrows item listings. Zero values mean "any".
type ItemFilter struct {
	Search   string
	Status   string
	Category string
	OwnerID  int64
	Page     int
	Limit    int
}

// ItemPage is one page of an item listing.
type ItemPage struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
}

// Listing page size bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the page and limit to their allowed ranges.
func (f *ItemFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}
