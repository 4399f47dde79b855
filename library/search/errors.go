package search

import (
	"fmt"

	errors "github.com/Laisky/errors/v2"
)

const (
	// ReasonCredentialMissing is reported when no credential file could be read.
	ReasonCredentialMissing = "credential source missing"
	// ReasonCredentialEmpty is reported when the credential file holds only whitespace.
	ReasonCredentialEmpty = "credential empty"
	// ReasonUnexpectedShape is reported when the upstream payload lacks the hits collection.
	ReasonUnexpectedShape = "unexpected response shape"
)

// ConfigurationError means the search credential is missing or empty.
// It is not retryable and should be surfaced to an operator.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search configuration error: %s: %v", e.Reason, e.Err)
	}
	return "search configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UpstreamError means the search API answered with a non-2xx status
// or with a payload that breaks the expected contract.
// StatusCode is zero for shape errors on an otherwise successful response.
type UpstreamError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := "search upstream error"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// AsUpstreamError extracts the *UpstreamError wrapped in err, if any.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var target *UpstreamError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
