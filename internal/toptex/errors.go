package toptex

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("toptex: authentication rejected")
	// ErrExportExpired is returned when the pre-signed export link answers 403.
	ErrExportExpired = errors.New("toptex: export link expired")
	ErrNotFound      = errors.New("toptex: not found")
)

// APIError carries a non-2xx upstream answer.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("toptex %s: upstream status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("toptex %s: upstream status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Op == "authenticate" && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}
