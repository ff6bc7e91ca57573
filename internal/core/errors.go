// Package core provides shared types and the error taxonomy for the
// AI gateway client and conversation state subsystem.
package core

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType represents the type of gateway error that occurred
type ErrorType string

const (
	// ErrorTypeUpstream indicates an upstream gateway error (5xx)
	ErrorTypeUpstream ErrorType = "upstream_error"
	// ErrorTypeRateLimit indicates a rate limit error (429)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAuthentication indicates an authentication error (401/403)
	ErrorTypeAuthentication ErrorType = "authentication_error"
	// ErrorTypeTransport indicates a failure before any response arrived
	ErrorTypeTransport ErrorType = "transport_error"
	// ErrorTypeStream indicates a protocol violation while consuming a stream
	ErrorTypeStream ErrorType = "stream_error"
)

// GatewayError is the error type for all transport and upstream failures.
// Hard failures are always surfaced to the caller and never retried here.
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates a new upstream error carrying the gateway status
func NewUpstreamError(statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewTransportError creates a new transport error (connection refused,
// marshaling failure, body read failure)
func NewTransportError(message string, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeTransport,
		Message: message,
		Err:     err,
	}
}

// NewStreamError creates a new stream protocol error
func NewStreamError(message string, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeStream,
		Message: message,
		Err:     err,
	}
}

// ParseGatewayError parses an error response body from the gateway and
// returns an appropriate GatewayError for the status code.
func ParseGatewayError(statusCode int, body []byte, originalErr error) *GatewayError {
	// Error bodies are usually {"error": {"message": ...}}; fall back to raw text
	var errorResponse struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &errorResponse); err == nil && errorResponse.Error.Message != "" {
		message = errorResponse.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &GatewayError{
			Type:       ErrorTypeAuthentication,
			Message:    message,
			StatusCode: statusCode,
			Err:        originalErr,
		}
	case statusCode == http.StatusTooManyRequests:
		return &GatewayError{
			Type:       ErrorTypeRateLimit,
			Message:    message,
			StatusCode: statusCode,
			Err:        originalErr,
		}
	case statusCode >= 400 && statusCode < 500:
		return &GatewayError{
			Type:       ErrorTypeInvalidRequest,
			Message:    message,
			StatusCode: statusCode,
			Err:        originalErr,
		}
	default:
		return NewUpstreamError(statusCode, message, originalErr)
	}
}
