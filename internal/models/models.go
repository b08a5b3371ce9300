// Package models defines the core data structures for ADC Navigator.
//
// It includes dialog sessions, lead records, transport-neutral events and
// API envelopes, which are shared across modules.
package models

import (
	"errors"
)

// Validation constants for collected answers.
const (
	// MaxAnswerLength caps a single free-text answer, in runes.
	MaxAnswerLength = 1000
	// MaxAttachmentsPerRequest caps how many files one request form may carry.
	MaxAttachmentsPerRequest = 20
)

// Error variables for better error handling and testability
var (
	ErrUnknownDialog = errors.New("unknown dialog kind")
	ErrNoStep        = errors.New("no step defined for state")
	ErrNoSession     = errors.New("no active session")
	ErrInvalidUserID = errors.New("user id must be positive")
	ErrEmptyToken    = errors.New("transport token cannot be empty")
	ErrLeadNotFound  = errors.New("lead not found")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder helps build consistent API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new builder.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the response status.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the response message.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the response result.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build returns the constructed response.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful response with result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// Error creates an error response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
