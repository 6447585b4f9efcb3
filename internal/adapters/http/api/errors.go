package api

import (
	"errors"
	"net/http"

	service "github.com/okian/appraisal/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// statusForKind maps a service error kind to the HTTP status returned.
func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusUnprocessableEntity
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	case service.KindUpstream, service.KindUpload, service.KindPermission, service.KindRender:
		return http.StatusBadGateway
	case service.KindTimeout:
		return http.StatusGatewayTimeout
	case service.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
