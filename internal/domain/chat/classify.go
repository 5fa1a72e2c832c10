package chat

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
)

// DefaultRetryAfterSeconds applies to rate-limit errors that do not say how long to wait.
const DefaultRetryAfterSeconds = 60

var (
	retryAfterPattern = regexp.MustCompile(`(?i)try again in (\d+(?:\.\d+)?)\s*s(?:ec(?:ond)?s?)?\b`)

	// Status codes quoted in error text count only as whole numbers, not as digits inside ids or token counts.
	status429Pattern = regexp.MustCompile(`\b429\b`)
	status401Pattern = regexp.MustCompile(`\b401\b`)
)

// ClassifyError maps an upstream failure to an ErrorKind. The first matching rule wins.
func ClassifyError(err error) entities.RetryableError {
	if err == nil {
		return entities.RetryableError{Kind: entities.ErrorUnknown}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	status := 0
	var upstream *entities.UpstreamError
	if errors.As(err, &upstream) {
		status = upstream.StatusCode
	}

	switch {
	case strings.Contains(lower, "quota") || strings.Contains(lower, "billing"):
		return entities.RetryableError{Kind: entities.ErrorQuota, Message: msg}
	case strings.Contains(lower, "api key"):
		return entities.RetryableError{Kind: entities.ErrorAuth, Message: msg}
	case strings.Contains(lower, "rate limit") || status == http.StatusTooManyRequests || (status == 0 && status429Pattern.MatchString(msg)):
		return entities.RetryableError{
			Kind:              entities.ErrorRateLimit,
			RetryAfterSeconds: parseRetryAfter(msg),
			Message:           msg,
		}
	case status == http.StatusUnauthorized || (status == 0 && status401Pattern.MatchString(msg)):
		return entities.RetryableError{Kind: entities.ErrorAuth, Message: msg}
	default:
		return entities.RetryableError{Kind: entities.ErrorUnknown, Message: msg}
	}
}

func parseRetryAfter(msg string) int {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if m == nil {
		return DefaultRetryAfterSeconds
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultRetryAfterSeconds
	}
	return int(math.Ceil(secs))
}

// UserMessage renders a classified failure as an assistant-styled message.
func UserMessage(re entities.RetryableError) string {
	switch re.Kind {
	case entities.ErrorQuota:
		return "The assistant's usage quota has been exhausted. Please check the plan and billing details, then try again later."
	case entities.ErrorAuth:
		return "The assistant could not authenticate with the language model provider. Please check the API key configuration."
	case entities.ErrorRateLimit:
		return fmt.Sprintf("%s Please wait about %d seconds and try again.", rateLimitMessagePrefix, re.RetryAfterSeconds)
	default:
		return "Sorry, something went wrong while contacting the assistant. Please try again."
	}
}

const retryNoticePrefix = "Rate limit reached. Retrying automatically"

// IsNotice reports whether content is a message the session generated itself
// (the provisional message, a retry notice or a classified failure) rather than a model reply.
func IsNotice(content string) bool {
	if content == ProvisionalMessage || strings.HasPrefix(content, retryNoticePrefix) {
		return true
	}
	for _, kind := range []entities.ErrorKind{entities.ErrorQuota, entities.ErrorAuth, entities.ErrorUnknown} {
		if content == UserMessage(entities.RetryableError{Kind: kind}) {
			return true
		}
	}
	return strings.HasPrefix(content, rateLimitMessagePrefix)
}

const rateLimitMessagePrefix = "The assistant is receiving too many requests right now."

func retryNotice(seconds, attempt, maxRetries int) string {
	return fmt.Sprintf("%s in %d seconds (attempt %d of %d).", retryNoticePrefix, seconds, attempt, maxRetries)
}
