// internal/models/catalog.go
package models

import "time"

// Pricing tiers shared by catalog entries and requirement budgets.
const (
	PricingFree     = "free"
	PricingFreemium = "freemium"
	PricingPaid     = "paid"
	PricingUnknown  = "unknown"
)

// CatalogEntry is one third-party API record. ID is immutable and is the join
// key used for recommendation reconciliation.
type CatalogEntry struct {
	ID                   string    `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	Category             string    `json:"category" db:"category"`
	Features             []string  `json:"features" db:"features"`
	Pricing              string    `json:"pricing" db:"pricing"`
	Description          string    `json:"description" db:"description"`
	WebsiteURL           string    `json:"website_url" db:"website_url"`
	DocumentationURL     string    `json:"documentation_url" db:"documentation_url"`
	Tags                 []string  `json:"tags" db:"tags"`
	DocumentationQuality float64   `json:"documentation_quality" db:"documentation_quality"`
	CommunityRating      float64   `json:"community_rating" db:"community_rating"`
	IsActive             bool      `json:"is_active" db:"is_active"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// Candidate is the projection of a CatalogEntry handed to the ranking model.
// The detail fields are only filled on the structured query path.
type Candidate struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Category             string   `json:"category"`
	Description          string   `json:"description"`
	Pricing              string   `json:"pricing"`
	WebsiteURL           string   `json:"website_url"`
	DocumentationURL     string   `json:"documentation_url"`
	Features             []string `json:"features,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	DocumentationQuality *float64 `json:"documentation_quality,omitempty"`
	CommunityRating      *float64 `json:"community_rating,omitempty"`
}

// SearchFilters are hard constraints applied after fuzzy matching. Zero
// values mean "no constraint".
type SearchFilters struct {
	Category  string   `json:"category,omitempty"`
	Pricing   string   `json:"pricing,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
}

func (f SearchFilters) IsEmpty() bool {
	return f.Category == "" && f.Pricing == "" && f.MinRating == nil
}

// Conversation is a persisted structured-query exchange.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Query     string    `json:"query" db:"query"`
	Response  Result    `json:"response" db:"response"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
