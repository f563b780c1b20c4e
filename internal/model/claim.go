package model

import "time"

// Claim is a request by one user to claim another user's item.
type Claim struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	RequesterID int64     `json:"requester_id"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	Item      *Item       `json:"item,omitempty"`
	Requester *PublicUser `json:"requester,omitempty"`
}

// Claim statuses.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusAccepted = "accepted"
	ClaimStatusRejected = "rejected"
)

// MaxClaimMessage is the longest accepted claim message, in characters.
const MaxClaimMessage = 500

// ClaimMessage is the requester-editable part of a claim.
type ClaimMessage struct {
	Message string `json:"message" validate:"required,max=500"`
}

// ClaimLists splits an actor's claims by role.
type ClaimLists struct {
	Submitted []Claim `json:"submitted"`
	Received  []Claim `json:"received"`
}

// IsDecision reports whether status is a valid owner decision.
func IsDecision(status string) bool {
	return status == ClaimStatusAccepted || status == ClaimStatusRejected
}

// Statistics summarises the registry.
type Statistics struct {
	FrequentCategories []CategoryCount `json:"frequent_categories"`
	CommonLocations    []LocationCount `json:"common_locations"`
	Overview           StatusOverview  `json:"overview"`
}

// CategoryCount is the number of items in a category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// LocationCount is the number of items reported at a location.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// StatusOverview counts items per status.
type StatusOverview struct {
	Lost      int `json:"lost"`
	Found     int `json:"found"`
	Recovered int `json:"recovered"`
}
