package orm

import (
	"context"
	"fmt"
	"strings"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	gormLogger "gorm.io/gorm/logger"
)

const defaultMaxLoggedParamLength = 256

// zapWriter routes gorm's printf-style output into the structured logger.
type zapWriter struct {
	logger logSDK.Logger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// truncatingParamsLogger keeps oversized parameters out of SQL logs.
type truncatingParamsLogger struct {
	gormLogger.Interface
	maxLoggedParamLength int
}

func newLogger(logger logSDK.Logger, level gormLogger.LogLevel) gormLogger.Interface {
	base := gormLogger.New(zapWriter{logger: logger}, gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	return &truncatingParamsLogger{
		Interface:            base,
		maxLoggedParamLength: defaultMaxLoggedParamLength,
	}
}

// ParamsFilter implements gormLogger.ParamsFilter.
func (l *truncatingParamsLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if len(params) == 0 {
		return sql, params
	}

	filtered := make([]any, len(params))
	for idx, param := range params {
		filtered[idx] = sanitizeLoggedSQLParam(param, l.maxLoggedParamLength)
	}

	return sql, filtered
}

func sanitizeLoggedSQLParam(param any, maxLen int) any {
	switch value := param.(type) {
	case string:
		if len(value) > maxLen {
			return fmt.Sprintf("<string:len=%d,truncated>", len(value))
		}
		return value
	case []byte:
		if len(value) > maxLen {
			return fmt.Sprintf("<bytes:len=%d,truncated>", len(value))
		}
		return value
	default:
		return param
	}
}
