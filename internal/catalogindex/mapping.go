package catalogindex

import (
	"time"

	"apisense/internal/models"
)

// CatalogSuffix names the catalog index under the configured prefix.
const CatalogSuffix = "apis"

// IndexName joins prefix and suffix the way every index in the cluster is named.
func IndexName(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "_" + suffix
}

func catalogMapping() map[string]interface{} {
	text := map[string]interface{}{"type": "text", "analyzer": "standard"}
	keyword := map[string]interface{}{"type": "keyword"}
	float := map[string]interface{}{"type": "float"}
	date := map[string]interface{}{"type": "date"}

	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"name":                  text,
				"category":              keyword,
				"features":              text,
				"pricing":               keyword,
				"documentation_quality": float,
				"community_rating":      float,
				"description":           text,
				"website_url":           keyword,
				"documentation_url":     keyword,
				"tags":                  text,
				"is_active":             map[string]interface{}{"type": "boolean"},
				"created_at":            date,
				"updated_at":            date,
			},
		},
	}
}

// document is the stored form of a catalog entry. Timestamps stay strings so
// documents written by other tools with looser date formats still decode.
type document struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Category             string   `json:"category"`
	Features             []string `json:"features"`
	Pricing              string   `json:"pricing"`
	Description          string   `json:"description"`
	WebsiteURL           string   `json:"website_url"`
	DocumentationURL     string   `json:"documentation_url"`
	Tags                 []string `json:"tags"`
	DocumentationQuality float64  `json:"documentation_quality"`
	CommunityRating      float64  `json:"community_rating"`
	IsActive             *bool    `json:"is_active,omitempty"`
	CreatedAt            string   `json:"created_at,omitempty"`
	UpdatedAt            string   `json:"updated_at,omitempty"`
}

func newDocument(e models.CatalogEntry, now time.Time) document {
	created, updated := e.CreatedAt, e.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	active := e.IsActive
	return document{
		ID:                   e.ID,
		Name:                 e.Name,
		Category:             e.Category,
		Features:             nonNil(e.Features),
		Pricing:              e.Pricing,
		Description:          e.Description,
		WebsiteURL:           e.WebsiteURL,
		DocumentationURL:     e.DocumentationURL,
		Tags:                 nonNil(e.Tags),
		DocumentationQuality: e.DocumentationQuality,
		CommunityRating:      e.CommunityRating,
		IsActive:             &active,
		CreatedAt:            created.UTC().Format(time.RFC3339),
		UpdatedAt:            updated.UTC().Format(time.RFC3339),
	}
}

// entry converts a stored document back; id is the hit's _id, which wins over
// the body copy. A missing is_active counts as active.
func (d document) entry(id string) models.CatalogEntry {
	if id == "" {
		id = d.ID
	}
	e := models.CatalogEntry{
		ID:                   id,
		Name:                 d.Name,
		Category:             d.Category,
		Features:             d.Features,
		Pricing:              d.Pricing,
		Description:          d.Description,
		WebsiteURL:           d.WebsiteURL,
		DocumentationURL:     d.DocumentationURL,
		Tags:                 d.Tags,
		DocumentationQuality: d.DocumentationQuality,
		CommunityRating:      d.CommunityRating,
		IsActive:             d.IsActive == nil || *d.IsActive,
	}
	if t, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
		e.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, d.UpdatedAt); err == nil {
		e.UpdatedAt = t
	}
	return e
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
