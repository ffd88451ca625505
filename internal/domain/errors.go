package domain

// APIError is the problem-details body returned for every failed request
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// Error types used in APIError.Type
const (
	ErrorTypeValidation      = "validation_error"
	ErrorTypeNotFound        = "not_found"
	ErrorTypeBadRequest      = "bad_request"
	ErrorTypeConflict        = "conflict"
	ErrorTypeUnauthorized    = "unauthorized"
	ErrorTypeForbidden       = "forbidden"
	ErrorTypeTooLarge        = "payload_too_large"
	ErrorTypeTooManyRequests = "rate_limited"
	ErrorTypeInternal        = "internal_error"
)

// validationMessages maps validator tags to user-facing messages
var validationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"url":      "Must be a valid URL",
	"uuid":     "Must be a valid UUID",
	"oneof":    "Must be one of the allowed values",
	"datetime": "Has an invalid format",
	"dive":     "Contains an invalid item",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := validationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}
