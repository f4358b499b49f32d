package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/protocol"
)

// APIError is a non-2xx engine response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: engine returned %d", e.Code, e.Status)
	}
	return fmt.Sprintf("%s: engine returned %d: %s", e.Code, e.Status, e.Message)
}

// Retryable reports whether a later poll may succeed.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

func newAPIError(resp *http.Response) *APIError {
	e := &APIError{Status: resp.StatusCode, Code: protocol.ErrTransport}
	if resp.StatusCode < 500 {
		e.Code = protocol.ErrActionFailed
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil {
		switch {
		case body.Message != "":
			e.Message = body.Message
		case body.Error != "":
			e.Message = body.Error
		case body.Detail != nil:
			if s, ok := body.Detail.(string); ok {
				e.Message = s
			} else if d, err := json.Marshal(body.Detail); err == nil {
				e.Message = string(d)
			}
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(b))
	}
	return e
}
