// internal/workers/recommendation/rank-recommendations/prompts.go
package rankrecommendations

import (
	"encoding/json"
	"fmt"

	"apisense/internal/models"
)

const recommendationsPrompt = `You are an expert API consultant. Based on the project requirements, recommend the best APIs from the available options.

Requirements: %s

Available APIs: %s

IMPORTANT: Use the EXACT api_id and api_name values from the Available APIs list above. Do not modify or abbreviate them.

Please provide a JSON response with the following structure:
{
    "recommendations": [
        {
            "api_id": "string (use exact ID from available APIs)",
            "api_name": "string (use exact name from available APIs)",
            "match_score": "number (0-100)",
            "reasoning": "why this API is recommended",
            "pros": ["array of advantages"],
            "cons": ["array of disadvantages"],
            "integration_tips": ["array of integration advice"]
        }
    ],
    "summary": "overall recommendation summary",
    "alternatives": ["array of alternative approaches"]
}

Rank the recommendations by match_score (highest first).`

func buildRecommendationsPrompt(reqs models.RequirementSet, candidates []models.Candidate) (string, error) {
	reqJSON, err := json.MarshalIndent(reqs, "", "    ")
	if err != nil {
		return "", err
	}
	candJSON, err := json.MarshalIndent(candidates, "", "    ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(recommendationsPrompt, reqJSON, candJSON), nil
}
