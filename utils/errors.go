package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrForbidden = errors.New("operação não permitida para este perfil")
	ErrNotFound  = errors.New("registro não encontrado")

	// ErrPrivilegedNotConfigured is returned by operations that need the
	// elevated backend function when it is disabled on this deployment.
	ErrPrivilegedNotConfigured = errors.New("operação privilegiada não permitida ou não configurada no servidor")
)

// CodePrivilegedNotConfigured lets clients tell a privileged failure apart
// from a generic one.
const CodePrivilegedNotConfigured = "privileged_not_configured"

// ValidationError is a local input failure. It never reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPrivilegedNotConfigured):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// RespondAppError writes err with the status StatusFor assigns to it.
func RespondAppError(c *gin.Context, err error) {
	code := StatusFor(err)
	resp := JSONResponse{Status: false, Message: err.Error()}
	if errors.Is(err, ErrPrivilegedNotConfigured) {
		resp.Code = CodePrivilegedNotConfigured
	}
	if code == http.StatusInternalServerError {
		ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, resp)
}
