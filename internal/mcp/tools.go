package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/z-Shi/TangoWithDjango/library/search"
)

// webSearchResult is the structured payload of the web_search tool.
type webSearchResult struct {
	Query   string                `json:"query"`
	Results []search.SearchResult `json:"results"`
}

// suggestCategoryResult is the structured payload of the suggest_category tool.
type suggestCategoryResult struct {
	Prefix     string   `json:"prefix"`
	Categories []string `json:"categories"`
}

func webSearchTool() mcp.Tool {
	return mcp.NewTool(
		"web_search",
		mcp.WithDescription("Search the public web and return the hits as title, link and summary."),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Plain text search query."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func suggestCategoryTool() mcp.Tool {
	return mcp.NewTool(
		"suggest_category",
		mcp.WithDescription("List rango category names that start with the given prefix, case-insensitively."),
		mcp.WithString(
			"prefix",
			mcp.Description("Category name prefix. Empty lists the first categories alphabetically."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func (s *Server) handleWebSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.engine == nil {
		return mcp.NewToolResultError("web search is not configured"), nil
	}

	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}

	start := time.Now()
	results, err := s.engine.Search(ctx, query)
	if err != nil {
		return s.searchFailure(err, query), nil
	}

	s.logger.Debug("web_search completed",
		zap.String("engine", s.engine.Name()),
		zap.Int("query_len", len(query)),
		zap.Int("results_count", len(results)),
		zap.Duration("duration", time.Since(start)),
	)

	if results == nil {
		results = []search.SearchResult{}
	}
	return mcp.NewToolResultJSON(webSearchResult{Query: query, Results: results})
}

// searchFailure turns an engine error into a tool error the client can act on.
func (s *Server) searchFailure(err error, query string) *mcp.CallToolResult {
	logger := s.logger.With(zap.Int("query_len", len(query)))

	if search.IsConfigurationError(err) {
		logger.Error("web_search misconfigured", zap.Error(err))
		return mcp.NewToolResultError("web search is not configured")
	}
	if upstream, ok := search.AsUpstreamError(err); ok {
		logger.Warn("web_search upstream failed", zap.Error(err))
		if upstream.StatusCode != 0 {
			return mcp.NewToolResultError(fmt.Sprintf("search upstream failed with status %d", upstream.StatusCode))
		}
		return mcp.NewToolResultError("search upstream failed: " + upstream.Reason)
	}

	logger.Error("web_search failed", zap.Error(err))
	return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err))
}

func (s *Server) handleSuggestCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.suggester == nil {
		return mcp.NewToolResultError("category suggestions are not configured"), nil
	}

	prefix := strings.TrimSpace(req.GetString("prefix", ""))
	cats, err := s.suggester.SuggestCategories(ctx, prefix)
	if err != nil {
		s.logger.Error("suggest_category failed", zap.Error(err), zap.String("prefix", prefix))
		return mcp.NewToolResultError(fmt.Sprintf("suggest categories: %v", err)), nil
	}

	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		names = append(names, cat.Name)
	}

	return mcp.NewToolResultJSON(suggestCategoryResult{Prefix: prefix, Categories: names})
}
