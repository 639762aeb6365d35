package models

// Result is the envelope returned by every tool call.
type Result struct {
	// Success is false when the operation failed.
	Success bool `json:"success"`
	// Data is the operation payload, if any.
	Data any `json:"data,omitempty"`
	// Message is a human-readable summary of a successful call.
	Message string `json:"message,omitempty"`
	// Error is the failure message.
	Error string `json:"error,omitempty"`
	// ErrorType is the failure category tag, e.g. "SheetError".
	ErrorType string `json:"error_type,omitempty"`
}
