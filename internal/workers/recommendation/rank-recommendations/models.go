// internal/workers/recommendation/rank-recommendations/models.go
package rankrecommendations

import "apisense/internal/models"

type Input struct {
	Requirements models.RequirementSet `json:"requirements"`
	Candidates   []models.Candidate    `json:"candidates"`
}

type Output struct {
	Recommendations models.RecommendationSet `json:"recommendations"`
	FallbackUsed    bool                     `json:"fallbackUsed"`
}
