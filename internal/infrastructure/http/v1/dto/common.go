// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// --- Common responses ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps list results.
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Parsing helpers ---

// ParseID parses a path or body field into an ID.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.ID{}, apperror.NewValidation("invalid id").WithDetail("field", field)
	}
	return parsed, nil
}

// ParseOptionalID parses an optional ID field, returning nil when empty.
func ParseOptionalID(field, value string) (*id.ID, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ParseMoney parses a decimal string into Money.
func ParseMoney(field, value string) (types.Money, error) {
	m, err := types.NewMoneyFromString(value)
	if err != nil {
		return types.ZeroMoney(), apperror.NewValidation("invalid amount").WithDetail("field", field)
	}
	return m, nil
}
