// Package orm opens gorm connections for the supported SQL dialects.
package orm

import (
	"context"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/z-Shi/TangoWithDjango/library/log"
)

const (
	// DialectSQLite stores everything in a local sqlite file.
	DialectSQLite = "sqlite"
	// DialectPostgres connects to a PostgreSQL server.
	DialectPostgres = "postgres"
)

// DialInfo describes which database to open.
type DialInfo struct {
	Dialect string
	DSN     string
	// Debug logs every statement instead of only slow ones and errors.
	Debug bool
}

// NewDB opens the database described by dialInfo and pings it.
func NewDB(ctx context.Context, dialInfo DialInfo, logger logSDK.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = log.Logger.Named("orm")
	}
	if strings.TrimSpace(dialInfo.DSN) == "" {
		return nil, errors.New("dsn cannot be empty")
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(dialInfo.Dialect)) {
	case "", DialectSQLite:
		dialector = sqlite.Open(dialInfo.DSN)
	case DialectPostgres:
		dialector = postgres.Open(dialInfo.DSN)
	default:
		return nil, errors.Errorf("unsupported db dialect %q", dialInfo.Dialect)
	}

	level := gormLogger.Warn
	if dialInfo.Debug {
		level = gormLogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger(logger, level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dialInfo.Dialect)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping db")
	}

	if dialector.Name() == DialectPostgres {
		sqlDB.SetMaxIdleConns(6)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}
