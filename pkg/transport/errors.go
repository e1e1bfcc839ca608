package transport

import (
	"fmt"
	"net/http"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

// RequestError is returned for every non-2xx response that was not recovered by a token refresh,
// and for requests that never got a response. The latter have a zero StatusCode and carry the
// network error in Err.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	if target == nil {
		return e == nil
	}
	if target == constants.ErrRequest {
		return true
	}
	_, ok := target.(*RequestError)
	return ok
}

func (e *RequestError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

func (e *RequestError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

func (e *RequestError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func configError(err error) error {
	return fmt.Errorf("%w: %w", constants.ErrConfiguration, err)
}
