package mcp

import (
	"context"
	"net/http"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
	"github.com/z-Shi/TangoWithDjango/library/log"
	"github.com/z-Shi/TangoWithDjango/library/search"
)

const (
	serverName    = "rango"
	serverVersion = "1.0.0"
)

// CategorySuggester looks up categories by name prefix.
type CategorySuggester interface {
	SuggestCategories(ctx context.Context, prefix string) ([]model.Category, error)
}

// Server wraps the MCP server state for the HTTP transport.
type Server struct {
	handler   http.Handler
	logger    logSDK.Logger
	engine    search.Engine
	suggester CategorySuggester
}

// NewServer constructs a remote MCP server exposing HTTP endpoints under a single handler.
// engine and suggester may be nil, the matching tool then answers with a
// configuration error. Tools disabled in settings are not registered.
func NewServer(engine search.Engine,
	suggester CategorySuggester,
	settings ToolsSettings,
	logger logSDK.Logger,
) (*Server, error) {
	if !settings.Enabled() {
		return nil, errors.New("at least one mcp tool must be enabled")
	}
	if logger == nil {
		logger = log.Logger.Named("mcp")
	}

	s := &Server{
		logger:    logger,
		engine:    engine,
		suggester: suggester,
	}

	instructions := "Use web_search to search the web and suggest_category to look up rango categories."
	mcpServer := srv.NewMCPServer(
		serverName,
		serverVersion,
		srv.WithToolCapabilities(true),
		srv.WithInstructions(instructions),
		srv.WithRecovery(),
		srv.WithHooks(newMCPHooks(logger.Named("hooks"))),
	)

	if settings.WebSearchEnabled {
		mcpServer.AddTool(webSearchTool(), s.handleWebSearch)
	}
	if settings.SuggestCategoryEnabled {
		mcpServer.AddTool(suggestCategoryTool(), s.handleSuggestCategory)
	}

	streamable := srv.NewStreamableHTTPServer(mcpServer)
	s.handler = withHTTPLogging(streamable, logger.Named("http"))
	return s, nil
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}
