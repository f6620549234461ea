// internal/workers/recommendation/analyze-requirements/models.go
package analyzerequirements

import "apisense/internal/models"

// Source selects the prompt variant.
const (
	SourceDescription = "description"
	SourceFile        = "file"
)

type Input struct {
	Source            string `json:"source"`
	Text              string `json:"text"`
	AdditionalContext string `json:"additionalContext,omitempty"`
	Filename          string `json:"filename,omitempty"`
}

type Output struct {
	Requirements models.RequirementSet `json:"requirements"`
}
