package internal

import "fmt"

// AppError is the only error shape the API surface exposes.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func NewAppError(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}
