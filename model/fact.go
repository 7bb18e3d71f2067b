package model

import "time"

// Fact is a structured memory the broker keeps about a user.
type Fact struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	RequestID       string    `json:"request_id,omitempty"`
	FactType        string    `json:"fact_type"`
	Value           string    `json:"value"`
	NormalizedValue string    `json:"normalized_value,omitempty"`
	Confidence      float64   `json:"confidence"`
	Source          string    `json:"source,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// APIResponse is the envelope of every facts HTTP response.
type APIResponse[T any] struct {
	OK     bool   `json:"ok"`
	Data   T      `json:"data,omitempty"`
	Result any    `json:"result,omitempty"`
	Note   string `json:"note,omitempty"`
	Error  string `json:"error,omitempty"`
}
