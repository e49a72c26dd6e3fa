// Package validator provides input validation for ingestion requests. It
// enforces URL and content length constraints and returns per-field error
// details.
package validator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/ingestion"
)

const (
	maxURLLength     = 2048
	maxContentLength = 4194304
	minContentLength = 1
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks that the URL and content of the request
// meet the required constraints and returns a ValidationError if not.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		errs["url"] = "url is required"
	} else if len(rawURL) > maxURLLength {
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	} else if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs["url"] = "url must be absolute (scheme and host required)"
	}
	content := strings.TrimSpace(req.Content)
	if len(content) < minContentLength {
		errs["content"] = "content is required and must not be empty"
	} else if len(content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d characters", maxContentLength)
	}
	if req.IdempotencyKey != "" && len(req.IdempotencyKey) > 255 {
		errs["idempotency_key"] = "idempotency key must be at most 255 characters"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
