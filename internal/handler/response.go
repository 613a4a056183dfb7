package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := service.KindOf(err)
	msg := err.Error()
	if code == service.CodeInternal {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(statusForCode(code), ErrorResponse{Code: code, Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: service.CodeInvalidInput, Error: msg})
}

// statusForCode maps service error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeUnauthorized:
		return http.StatusForbidden
	case service.CodeInvalidInput:
		return http.StatusBadRequest
	case service.CodeInvalidStatusTransition, service.CodeAlreadyExists:
		return http.StatusConflict
	case service.CodeResourceUnavailable:
		return http.StatusServiceUnavailable
	case service.CodeDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// principal returns the principal set by middleware.Principal.
func principal(c *gin.Context) domain.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}
