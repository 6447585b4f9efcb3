package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for the client.
var (
	ErrEmptyInput  = errors.New("input holds no property requests")
	ErrUnhealthy   = errors.New("service health check failed")
	ErrInvalidJSON = errors.New("input is neither a request object nor an array of requests")
)

// APIError is a non-2xx answer from the appraisal service.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

func (e *APIError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%d %s at %s: %s", e.Status, e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}
