package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fellnerd/dimetrics-mcp-server/internal/apperr"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: backend returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: backend returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// TransportError is returned when no usable response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Translate maps a gateway error onto the error taxonomy exposed to tool
// callers. 404 becomes EntryNotFound, 400 and 422 become ValidationFailed,
// everything else is GatewayError. The backend body text is kept in the
// error chain. nil stays nil; errors already carrying a Kind pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return apperr.Wrap(apperr.EntryNotFound, err, "not found")
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return apperr.Wrap(apperr.ValidationFailed, err, "backend rejected the request")
		default:
			return apperr.Wrap(apperr.GatewayError, err, "%s", http.StatusText(statusErr.StatusCode))
		}
	}
	return apperr.Wrap(apperr.GatewayError, err, "backend request failed")
}
