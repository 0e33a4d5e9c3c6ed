package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/DronPascal/telegram-toolkit-mcp/history"
	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

func fetchHistoryTool() mcp.Tool {
	return mcp.NewTool("fetch_history",
		mcp.WithDescription("Fetch message history from a public Telegram chat over a UTC date window, with cursor-based pagination, filtering and text search. Large windows are also exported as an NDJSON resource."),
		mcp.WithString("chat",
			mcp.Required(),
			mcp.Description("Chat identifier: @username, t.me URL, bare username, or canonical numeric ID."),
		),
		mcp.WithString("from_date",
			mcp.Description("Inclusive window start, ISO 8601 UTC (e.g. 2024-03-01T00:00:00Z)."),
		),
		mcp.WithString("to_date",
			mcp.Description("Inclusive window end, ISO 8601 UTC."),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Messages per page, 1..100. Default 50."),
			mcp.Min(1),
			mcp.Max(100),
		),
		mcp.WithString("cursor",
			mcp.Description("Opaque pagination cursor from a previous page. Round-trip verbatim."),
		),
		mcp.WithString("direction",
			mcp.Description(`Traversal direction across pages: "asc" (oldest first) or "desc" (newest first, default).`),
			mcp.Enum("asc", "desc"),
		),
		mcp.WithString("search",
			mcp.Description("Case-insensitive text search over message content."),
		),
		mcp.WithObject("filter",
			mcp.Description("Advanced filter: media_types ([text|photo|video|document|audio|voice|sticker|link|poll]), has_media (bool), from_users ([int]), min_views, max_views."),
		),
	)
}

// HandleFetchHistory implements the fetch_history tool.
func (h *Handlers) HandleFetchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	started := time.Now()
	fail := func(res *mcp.CallToolResult) (*mcp.CallToolResult, error) {
		return h.observe("fetch_history", started, res), nil
	}

	chatInput, err := request.RequireString("chat")
	if err != nil {
		return fail(validationError("chat", "chat is required and must be a string"))
	}
	chatInput = strings.TrimSpace(chatInput)
	if chatInput == "" || len(chatInput) > maxInputLength {
		return fail(validationError("chat", "chat must be a non-empty identifier"))
	}

	from, err := parseUTCDate(request.GetString("from_date", ""), "from_date")
	if err != nil {
		return fail(errorResult(err))
	}
	to, err := parseUTCDate(request.GetString("to_date", ""), "to_date")
	if err != nil {
		return fail(errorResult(err))
	}

	direction := history.Direction(request.GetString("direction", string(history.DirectionDesc)))
	pageSize := request.GetInt("page_size", 0)
	if raw, given := request.GetArguments()["page_size"]; given && raw != nil && pageSize == 0 {
		return fail(validationError("page_size", "must be at least 1"))
	}
	cursor := strings.TrimSpace(request.GetString("cursor", ""))
	search := strings.TrimSpace(request.GetString("search", ""))

	filter, ferr := parseFilter(request.GetArguments()["filter"])
	if ferr != nil {
		return fail(errorResult(ferr))
	}

	ref, err := h.resolver.Resolve(ctx, chatInput)
	if err != nil {
		h.logger.Warn("fetch_history_resolve_failed", "error", err.Error())
		return fail(errorResult(err))
	}

	window := history.Window{
		Chat:      ref,
		From:      from,
		To:        to,
		Direction: direction,
		PageSize:  pageSize,
		Search:    search,
		Filter:    filter,
	}

	page, err := h.fetcher.Fetch(ctx, window, cursor)
	if err != nil {
		if errors.Is(err, telegram.ErrChatNotFound) {
			h.resolver.Invalidate(ref.Peer.ID)
		}
		var rl *history.RateLimitedError
		if errors.As(err, &rl) && h.metrics != nil {
			h.metrics.FloodWaits.Inc()
		}
		h.logger.Warn("fetch_history_failed", "chat_id", ref.ChatID, "error", err.Error())
		return fail(errorResult(err))
	}

	if h.metrics != nil {
		h.metrics.MessagesFetched.Add(float64(len(page.Messages)))
		h.metrics.PagesServed.WithLabelValues(string(direction)).Inc()
		if page.Export != nil {
			h.metrics.Exports.WithLabelValues("success").Inc()
		}
	}

	summary := fmt.Sprintf("Fetched %d messages from %q", len(page.Messages), ref.Title)
	if page.PageInfo.HasMore {
		summary += " (more available; pass the cursor to continue)"
	} else {
		summary += " (end of results)"
	}
	if page.Export != nil {
		summary += fmt.Sprintf("; full window exported to %s", page.Export.URI)
	}

	res := &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(summary)},
		StructuredContent: page,
	}
	return fail(res)
}

// parseUTCDate accepts ISO-8601 with an explicit UTC offset, or a bare date
// treated as UTC midnight. Non-UTC offsets are rejected.
func parseUTCDate(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		utc := t.UTC()
		return &utc, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &history.ValidationError{Field: field, Reason: "must be ISO 8601 (e.g. 2024-03-01T00:00:00Z)"}
	}
	if _, offset := t.Zone(); offset != 0 {
		return nil, &history.ValidationError{Field: field, Reason: "must be UTC (use Z or +00:00)"}
	}
	utc := t.UTC()
	return &utc, nil
}

// parseFilter decodes the filter argument object. Unknown keys and wrongly
// typed values are validation errors, matching the closed schema.
func parseFilter(raw any) (*history.Filter, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &history.ValidationError{Field: "filter", Reason: "must be an object"}
	}
	if len(obj) == 0 {
		return nil, nil
	}

	f := &history.Filter{}
	for key, value := range obj {
		switch key {
		case "media_types":
			kinds, ok := asStringSlice(value)
			if !ok {
				return nil, &history.ValidationError{Field: "filter.media_types", Reason: "must be an array of strings"}
			}
			for _, k := range kinds {
				f.MediaTypes = append(f.MediaTypes, telegram.MediaKind(k))
			}
		case "has_media":
			b, ok := asBool(value)
			if !ok {
				return nil, &history.ValidationError{Field: "filter.has_media", Reason: "must be a boolean"}
			}
			f.HasMedia = &b
		case "from_users":
			ids, ok := asInt64Slice(value)
			if !ok {
				return nil, &history.ValidationError{Field: "filter.from_users", Reason: "must be an array of integers"}
			}
			f.FromUsers = ids
		case "min_views":
			n, ok := asInt(value)
			if !ok {
				return nil, &history.ValidationError{Field: "filter.min_views", Reason: "must be an integer"}
			}
			f.MinViews = &n
		case "max_views":
			n, ok := asInt(value)
			if !ok {
				return nil, &history.ValidationError{Field: "filter.max_views", Reason: "must be an integer"}
			}
			f.MaxViews = &n
		default:
			return nil, &history.ValidationError{Field: "filter." + key, Reason: "unknown filter option"}
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
