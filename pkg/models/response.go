package models

// Response is the JSON envelope every endpoint returns
type Response struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data"`
	Error   string       `json:"error,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError reports a validation failure on a single input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// OK wraps data in a success envelope
func OK(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// Fail wraps an error message in a failure envelope
func Fail(msg string) Response {
	return Response{Success: false, Error: msg}
}

// FailFields wraps field-level validation errors in a failure envelope
func FailFields(errs []FieldError) Response {
	return Response{Success: false, Errors: errs}
}
