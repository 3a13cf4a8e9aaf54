package api

import "time"

// TokenRequest represents the request payload for candidate authentication
type TokenRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// TokenResponse represents the response payload for candidate authentication
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// TopicSummary is a catalog topic as listed to candidates
type TopicSummary struct {
	ID            string `json:"id"`
	Topic         string `json:"topic"`
	Category      string `json:"category,omitempty"`
	QuestionCount int    `json:"question_count"`
	Selectable    bool   `json:"selectable"`
}

// TopicsResponse represents the topic listing
type TopicsResponse struct {
	Topics []TopicSummary `json:"topics"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
