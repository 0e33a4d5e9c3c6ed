// Package tools adapts the extraction core to the MCP tool contract:
// resolve_chat and fetch_history tool definitions, argument validation, the
// wire error taxonomy, and the NDJSON export resource template.
package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DronPascal/telegram-toolkit-mcp/artifact"
	"github.com/DronPascal/telegram-toolkit-mcp/chats"
	"github.com/DronPascal/telegram-toolkit-mcp/history"
	"github.com/DronPascal/telegram-toolkit-mcp/internal/metrics"
)

const serverName = "telegram-toolkit-mcp"

// Deps is the composition record: every collaborator arrives by explicit
// parameter, none are globals.
type Deps struct {
	Resolver  *chats.Resolver
	Fetcher   *history.Fetcher
	Artifacts *artifact.Store
	Metrics   *metrics.Set
	Logger    *slog.Logger
}

// Handlers holds the tool implementations behind the MCP server.
type Handlers struct {
	resolver  *chats.Resolver
	fetcher   *history.Fetcher
	artifacts *artifact.Store
	metrics   *metrics.Set
	logger    *slog.Logger
}

func newHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		resolver:  deps.Resolver,
		fetcher:   deps.Fetcher,
		artifacts: deps.Artifacts,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// NewServer assembles the MCP server with both tools and the export
// resource template registered.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, true),
		server.WithRecovery(),
	)
	h := newHandlers(deps)
	s.AddTool(resolveChatTool(), h.HandleResolveChat)
	s.AddTool(fetchHistoryTool(), h.HandleFetchHistory)
	s.AddResourceTemplate(exportResourceTemplate(), h.HandleExportResource)
	return s
}

func exportResourceTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		artifact.URIScheme+"{id}.ndjson",
		"Telegram history export",
		mcp.WithTemplateDescription("NDJSON export of a fetched message window; one message object per line. Valid until its TTL expires."),
		mcp.WithTemplateMIMEType("application/x-ndjson"),
	)
}

// HandleExportResource streams an artifact back to the client. Expired and
// unknown URIs fail identically, with a RESOURCE_EXPIRED error.
func (h *Handlers) HandleExportResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	rc, meta, err := h.artifacts.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", classify(err).Type, err, uri)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("resource read failed: %s", uri)
	}
	h.logger.Info("resource_read", "id", meta.ID, "bytes", len(data))
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/x-ndjson",
			Text:     string(data),
		},
	}, nil
}
