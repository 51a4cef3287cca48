package api

import "net/http"

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Fallback errors for requests that never reach a handler. Handlers and
// middleware build their own responses in their own packages.
var (
	ErrRouteNotFound = &Error{
		Code:    "NOT_FOUND",
		Message: "Route not found",
		Status:  http.StatusNotFound,
	}

	ErrMethodNotAllowed = &Error{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "Method not allowed",
		Status:  http.StatusMethodNotAllowed,
	}
)
