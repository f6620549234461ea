// internal/models/recommendation.go
package models

import "strings"

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// RequirementSet is the structured reading of a project description. Every
// field is optional.
type RequirementSet struct {
	ProjectType           string   `json:"project_type"`
	RequiredCategories    []string `json:"required_categories"`
	SpecificFeatures      []string `json:"specific_features"`
	TechnicalRequirements []string `json:"technical_requirements"`
	PriorityLevel         string   `json:"priority_level"`
	BudgetConsideration   string   `json:"budget_consideration"`
	Summary               string   `json:"summary"`
}

// SearchQuery returns the summary when present, otherwise fallback.
func (r RequirementSet) SearchQuery(fallback string) string {
	if s := strings.TrimSpace(r.Summary); s != "" {
		return s
	}
	return fallback
}

// Recommendation is one ranked API. WebsiteURL and DocumentationURL come from
// reconciliation against the candidate list, never from the model.
type Recommendation struct {
	APIID            string   `json:"api_id"`
	APIName          string   `json:"api_name"`
	MatchScore       float64  `json:"match_score"`
	Reasoning        string   `json:"reasoning"`
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
	IntegrationTips  []string `json:"integration_tips"`
	WebsiteURL       string   `json:"website_url"`
	DocumentationURL string   `json:"documentation_url"`
}

type RecommendationSet struct {
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary"`
	Alternatives    []string         `json:"alternatives"`
}

// Result is the pipeline's output contract.
type Result struct {
	Requirements    RequirementSet    `json:"requirements"`
	Recommendations RecommendationSet `json:"recommendations"`
}
