package service

import "fmt"

// FallbackMessage is shown when a transport failure carries no text of its own.
const FallbackMessage = "An unexpected error occurred"

// TransportError means the request never produced a usable response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil || e.Err.Error() == "" {
		return FallbackMessage
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is a response outside the 2xx range.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("Server responded with status: %d", e.StatusCode)
}

// ContentTypeError is a 2xx response not declared as JSON.
type ContentTypeError struct {
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return "Server did not return JSON response"
}

// SchemaError is a JSON body without the expected shape.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return "Invalid format from server"
}

func (e *SchemaError) Unwrap() error { return e.Err }
