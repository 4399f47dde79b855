// Package mcp exposes rango search and category suggestions as MCP tools.
package mcp

import (
	"github.com/z-Shi/TangoWithDjango/library/config"
)

// ToolsSettings toggles individual MCP tools.
type ToolsSettings struct {
	WebSearchEnabled       bool
	SuggestCategoryEnabled bool
}

// LoadToolsSettingsFromConfig reads the MCP tools configuration.
// Every tool is enabled unless explicitly disabled.
func LoadToolsSettingsFromConfig() ToolsSettings {
	return ToolsSettings{
		WebSearchEnabled:       config.Bool("settings.mcp.tools.web_search.enabled", true),
		SuggestCategoryEnabled: config.Bool("settings.mcp.tools.suggest_category.enabled", true),
	}
}

// Enabled reports whether the server would expose any tool at all.
func (s ToolsSettings) Enabled() bool {
	return s.WebSearchEnabled || s.SuggestCategoryEnabled
}
