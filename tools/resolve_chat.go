package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const maxInputLength = 256

func resolveChatTool() mcp.Tool {
	return mcp.NewTool("resolve_chat",
		mcp.WithDescription("Resolve a public Telegram chat identifier (@username, t.me URL, or numeric ID) to its canonical descriptor."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Chat identifier: @username, https://t.me/username, bare username, or canonical numeric ID."),
		),
	)
}

// HandleResolveChat implements the resolve_chat tool.
func (h *Handlers) HandleResolveChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	started := time.Now()
	input, err := request.RequireString("input")
	if err != nil {
		return h.observe("resolve_chat", started, validationError("input", "input is required and must be a string")), nil
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return h.observe("resolve_chat", started, validationError("input", "input must not be empty")), nil
	}
	if len(input) > maxInputLength {
		return h.observe("resolve_chat", started, validationError("input", "input is too long")), nil
	}

	ref, err := h.resolver.Resolve(ctx, input)
	if err != nil {
		h.logger.Warn("resolve_chat_failed", "error", err.Error())
		return h.observe("resolve_chat", started, errorResult(err)), nil
	}

	summary := fmt.Sprintf("Resolved %s to %q (%s, id %s)", input, ref.Title, ref.Kind, ref.ChatID)
	res := &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(summary)},
		StructuredContent: ref,
	}
	return h.observe("resolve_chat", started, res), nil
}

// observe records tool metrics and returns the result unchanged.
func (h *Handlers) observe(tool string, started time.Time, res *mcp.CallToolResult) *mcp.CallToolResult {
	if h.metrics == nil {
		return res
	}
	status := "ok"
	if res.IsError {
		status = "error"
	}
	h.metrics.ToolCalls.WithLabelValues(tool, status).Inc()
	h.metrics.ToolDuration.WithLabelValues(tool).Observe(time.Since(started).Seconds())
	return res
}
