package tools

import (
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/DronPascal/telegram-toolkit-mcp/artifact"
	"github.com/DronPascal/telegram-toolkit-mcp/history"
	"github.com/DronPascal/telegram-toolkit-mcp/internal/waitctl"
	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// wireError is the machine-readable error payload. Provider-specific
// messages never cross this boundary verbatim; only typed codes and short
// details do.
type wireError struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
}

type errorPayload struct {
	Error wireError `json:"error"`
}

func classify(err error) wireError {
	var verr *history.ValidationError
	if errors.As(err, &verr) {
		return wireError{
			Type:   "VALIDATION_ERROR",
			Title:  "Input validation failed",
			Status: 400,
			Detail: verr.Error(),
		}
	}
	var rl *history.RateLimitedError
	if errors.As(err, &rl) {
		return wireError{
			Type:       "RATE_LIMITED",
			Title:      "Rate limit exceeded",
			Status:     429,
			Detail:     fmt.Sprintf("provider requested a %s wait", rl.RetryAfter),
			RetryAfter: int(math.Ceil(rl.RetryAfter.Seconds())),
			Cursor:     rl.Cursor,
		}
	}
	if retryAfter, ok := waitctl.AsRateLimited(err); ok {
		return wireError{
			Type:       "RATE_LIMITED",
			Title:      "Rate limit exceeded",
			Status:     429,
			Detail:     fmt.Sprintf("provider requested a %s wait", retryAfter),
			RetryAfter: int(math.Ceil(retryAfter.Seconds())),
		}
	}
	switch {
	case errors.Is(err, telegram.ErrUsernameInvalid):
		return wireError{Type: "USERNAME_INVALID", Title: "Username is not valid", Status: 400}
	case errors.Is(err, telegram.ErrChatNotFound):
		return wireError{Type: "CHAT_NOT_FOUND", Title: "Chat not found", Status: 404}
	case errors.Is(err, telegram.ErrChannelPrivate):
		return wireError{Type: "CHANNEL_PRIVATE", Title: "Chat is not publicly accessible", Status: 403}
	case errors.Is(err, artifact.ErrExpired):
		return wireError{Type: "RESOURCE_EXPIRED", Title: "Export resource expired", Status: 404}
	case telegram.IsRetryable(err):
		return wireError{Type: "UNAVAILABLE", Title: "Provider temporarily unavailable", Status: 503}
	default:
		return wireError{Type: "INTERNAL_ERROR", Title: "Internal error", Status: 500}
	}
}

// errorResult shapes an isError tool result: a short text summary plus the
// structured error payload.
func errorResult(err error) *mcp.CallToolResult {
	we := classify(err)
	text := we.Title
	if we.Type == "RATE_LIMITED" {
		text = fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", we.RetryAfter)
	} else if we.Detail != "" {
		text = fmt.Sprintf("%s: %s", we.Title, we.Detail)
	}
	return &mcp.CallToolResult{
		IsError:           true,
		Content:           []mcp.Content{mcp.NewTextContent(text)},
		StructuredContent: errorPayload{Error: we},
	}
}

func validationError(field, reason string) *mcp.CallToolResult {
	return errorResult(&history.ValidationError{Field: field, Reason: reason})
}
