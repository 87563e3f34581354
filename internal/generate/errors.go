package generate

import (
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// isRateLimit reports whether err indicates rate limiting or quota
// exhaustion. Structured provider errors are checked first; the substring
// match remains as a fallback for providers that only surface text.
func isRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	var gperr *genai.APIError
	if errors.As(err, &gperr) {
		return gperr.Code == http.StatusTooManyRequests
	}

	var oerr *openai.APIError
	if errors.As(err, &oerr) {
		return oerr.HTTPStatusCode == http.StatusTooManyRequests
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "quota") ||
		strings.Contains(s, "rate")
}
