package entities

import "fmt"

// ConfigurationError is fatal and reported before any processing.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// ValidationError rejects a request before it reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Message)
}

// UpstreamError is a failure reported by the LLM endpoint.
// StatusCode is zero when the failure did not come with an HTTP status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// ErrorKind classifies upstream failures for user-facing handling.
type ErrorKind string

const (
	ErrorQuota     ErrorKind = "quota"
	ErrorAuth      ErrorKind = "auth"
	ErrorRateLimit ErrorKind = "rateLimit"
	ErrorUnknown   ErrorKind = "unknown"
)

// RetryableError is a classified upstream failure.
// RetryAfterSeconds is only meaningful for ErrorRateLimit.
type RetryableError struct {
	Kind              ErrorKind
	RetryAfterSeconds int
	Message           string
}
