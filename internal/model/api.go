package model

import "time"

// Error codes returned in API error responses.
const (
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeNotFound      = "not_found"
	ErrCodeInternalError = "internal_error"
	ErrCodeUnavailable   = "unavailable"
)

// ResponseMeta carries request tracing info in every API response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// APIResponse is the standard success envelope.
type APIResponse struct {
	Data any          `json:"data"`
	Meta ResponseMeta `json:"meta"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is the standard error envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// AuthTokenRequest is the body of POST /auth/token.
type AuthTokenRequest struct {
	Client string `json:"client"`
	APIKey string `json:"api_key"`
}

// AuthTokenResponse is the response of POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse is the response of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Agents  int    `json:"agents"`
	Uptime  int64  `json:"uptime_seconds"`
}

// DurationInput is one raw duration observation submitted for ingestion.
// Derived fields (variance, bottleneck factor) are computed server-side.
type DurationInput struct {
	Timestamp       time.Time `json:"timestamp"`
	ProjectID       string    `json:"project_id"`
	WorkPackage     string    `json:"work_package"`
	PlannedDuration float64   `json:"planned_duration"`
	ActualDuration  float64   `json:"actual_duration"`
}

// UtilizationInput is one raw utilization observation submitted for ingestion.
type UtilizationInput struct {
	Timestamp    time.Time `json:"timestamp"`
	ProjectID    string    `json:"project_id"`
	ResourceType string    `json:"resource_type"`
	Planned      float64   `json:"planned"`
	Actual       float64   `json:"actual"`
}

// IngestResponse reports how many records an ingestion call wrote.
type IngestResponse struct {
	Inserted int64 `json:"inserted"`
}
