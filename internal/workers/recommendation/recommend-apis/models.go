// internal/workers/recommendation/recommend-apis/models.go
package recommendapis

import "apisense/internal/models"

// Modes accepted by Execute.
const (
	ModeDescription = "description"
	ModeFile        = "file"
	ModeQuery       = "query"
)

type Input struct {
	Mode      string `json:"mode"`
	Text      string `json:"text"`
	Filename  string `json:"filename,omitempty"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type Output struct {
	Result         models.Result `json:"result"`
	SessionID      string        `json:"sessionId,omitempty"`
	ConversationID string        `json:"conversationId,omitempty"`
}

// QueryRequest is a structured query from an authenticated user.
type QueryRequest struct {
	Query     string
	UserID    string
	SessionID string
}

type QueryResult struct {
	Result         models.Result
	SessionID      string
	ConversationID string
}
