// internal/workers/recommendation/retrieve-candidates/models.go
package retrievecandidates

import "apisense/internal/models"

// Request is one retrieval. Filters are applied exactly as given; use
// DeriveFilters for the structured-query policy.
type Request struct {
	Query          string                 `json:"query"`
	Requirements   *models.RequirementSet `json:"requirements,omitempty"`
	Filters        models.SearchFilters   `json:"filters"`
	Limit          int                    `json:"limit"`
	IncludeDetails bool                   `json:"includeDetails"`
}

// Input is the job payload. With DeriveFilters set the filters come from the
// requirements instead of Filters.
type Input struct {
	Request
	DeriveFilters bool `json:"deriveFilters"`
}

type Output struct {
	Candidates []models.Candidate `json:"candidates"`
	Total      int64              `json:"total"`
}
