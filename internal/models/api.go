// Package models holds the request and response types of the query
// API.
package models

// RunRequest is the body of POST /api/v1/hackrx/run: one document URL
// and the questions to answer against it.
type RunRequest struct {
	Documents string   `json:"documents" binding:"required"`
	Questions []string `json:"questions" binding:"required"`
}

// RunResponse carries one answer per question, in request order.
type RunResponse struct {
	Answers []string `json:"answers"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports service liveness and quota standing.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Quota   map[string]string `json:"quota"`
}

// SessionMetrics summarizes one processed request for later
// inspection.
type SessionMetrics struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	Questions  int    `json:"questions"`
	Answered   int    `json:"answered"`
	Failed     int    `json:"failed"`
	Cached     int    `json:"cached"`
	DurationMS int64  `json:"duration_ms"`
}
