// Package config loads settings into the shared go-config instance.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/z-Shi/TangoWithDjango/library/log"
)

// LoadFromFile loads the yaml settings at cfgPath and remembers its directory
// under `cfg_dir`, so relative paths can be resolved by ResolvePath.
func LoadFromFile(cfgPath string) {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// ResolvePath joins a relative path onto the configuration directory.
// Absolute paths, and any path when no configuration was loaded, are returned as-is.
func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	dir := gconfig.Shared.GetString("cfg_dir")
	if dir == "" {
		return path
	}

	return filepath.Join(dir, path)
}

// String returns the trimmed string at key, or def when unset.
func String(key, def string) string {
	if v := strings.TrimSpace(gconfig.Shared.GetString(key)); v != "" {
		return v
	}
	return def
}

// StringSlice returns the string slice at key, or def when unset.
func StringSlice(key string, def []string) []string {
	if v := gconfig.Shared.GetStringSlice(key); len(v) > 0 {
		return v
	}
	return def
}

// Int retrieves an integer configuration value with a default fallback.
func Int(key string, def int) int {
	value := gconfig.Shared.Get(key)
	switch v := value.(type) {
	case nil:
		return def
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
			return parsed
		}
		return def
	default:
		return def
	}
}

// Bool returns the boolean at key, or def when unset.
func Bool(key string, def bool) bool {
	if gconfig.Shared.Get(key) == nil {
		return def
	}
	return gconfig.Shared.GetBool(key)
}
