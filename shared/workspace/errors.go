package workspace

import (
	"encoding/json"
	"fmt"
)

// APIError is returned for every non-2xx workspace response. Body holds the
// response verbatim; ErrorCode and Message are filled when it is JSON.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	ErrorCode  string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" || e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d %s: %s", e.Method, e.Path, e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// JSON reports whether the response body parsed as JSON
func (e *APIError) JSON() bool {
	return json.Valid([]byte(e.Body))
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Body:       string(body),
	}

	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.ErrorCode = payload.ErrorCode
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}

	return apiErr
}
