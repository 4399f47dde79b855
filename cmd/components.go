package cmd

import (
	"context"
	"database/sql"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/z-Shi/TangoWithDjango/internal/web/session"
	"github.com/z-Shi/TangoWithDjango/library/config"
	"github.com/z-Shi/TangoWithDjango/library/db/orm"
	"github.com/z-Shi/TangoWithDjango/library/log"
	"github.com/z-Shi/TangoWithDjango/library/search"
	"github.com/z-Shi/TangoWithDjango/library/search/bing"
	"github.com/z-Shi/TangoWithDjango/library/visit"
)

const (
	defaultDBDSN      = "rango.sqlite3"
	defaultSessionDSN = "rango-session.sqlite3"

	sessionPurgeInterval = time.Hour
)

// newSearchEngine builds the engine named by settings.search.engine,
// wrapped with metrics. The choice is made once here, never probed at runtime.
func newSearchEngine() (search.Engine, error) {
	name := strings.ToLower(config.String("settings.search.engine", search.EngineBing))
	switch name {
	case search.EngineStub:
		return search.Instrument(search.NewStubEngine()), nil
	case search.EngineBing:
		engine, err := bing.NewSearchEngine(
			search.NewCredentialLoader(bingKeyFiles()),
			bing.WithEndpoint(config.String("settings.search.bing.endpoint", bing.DefaultEndpoint)),
			bing.WithTimeout(time.Duration(config.Int("settings.search.bing.timeout_seconds", int(bing.DefaultTimeout/time.Second)))*time.Second),
		)
		if err != nil {
			return nil, errors.Wrap(err, "new bing search engine")
		}
		return search.Instrument(engine), nil
	default:
		return nil, errors.Errorf("unknown search engine %q", name)
	}
}

// bingKeyFiles returns the configured credential files resolved against
// the config directory.
func bingKeyFiles() []string {
	paths := config.StringSlice("settings.search.bing.key_files", search.DefaultCredentialFiles)
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		resolved = append(resolved, config.ResolvePath(p))
	}
	return resolved
}

func redisSessionPrefix() string {
	return config.String("settings.session.redis.prefix", session.DefaultRedisPrefix)
}

// newVisitTracker builds the tracker with the configured malformed-state policy.
func newVisitTracker() (*visit.Tracker, error) {
	policy, err := visit.ParsePolicy(config.String("settings.rango.visits.malformed_policy", string(visit.PolicyReject)))
	if err != nil {
		return nil, errors.Wrap(err, "parse visit policy")
	}
	return visit.NewTracker(visit.WithPolicy(policy)), nil
}

// openDB connects to the rango database.
func openDB(ctx context.Context) (*gorm.DB, error) {
	dialect := strings.ToLower(config.String("settings.db.dialect", orm.DialectSQLite))
	dsn := config.String("settings.db.dsn", defaultDBDSN)
	if dialect == orm.DialectSQLite {
		dsn = config.ResolvePath(dsn)
	}

	return orm.NewDB(ctx, orm.DialInfo{
		Dialect: dialect,
		DSN:     dsn,
		Debug:   config.Bool("debug", false),
	}, log.Logger.Named("orm"))
}

// newSessionConfig reads the cookie settings.
func newSessionConfig() session.Config {
	return session.Config{
		CookieName: config.String("settings.session.cookie_name", session.DefaultCookieName),
		TTL:        time.Duration(config.Int("settings.session.ttl_days", 14)) * 24 * time.Hour,
		Secure:     config.Bool("settings.session.cookie_secure", false),
	}
}

// newSessionStore opens the configured session backend. The returned
// closer releases the backend connection.
func newSessionStore(ctx context.Context) (session.Store, func() error, error) {
	backend := strings.ToLower(config.String("settings.session.backend", "sql"))
	switch backend {
	case "sql":
		db, err := sql.Open("sqlite3", config.ResolvePath(config.String("settings.session.dsn", defaultSessionDSN)))
		if err != nil {
			return nil, nil, errors.Wrap(err, "open session database")
		}
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)

		store, err := session.NewSQLStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, errors.Wrap(err, "new sql session store")
		}

		go purgeExpiredSessions(ctx, store)
		return store, db.Close, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.String("settings.session.redis.addr", "localhost:6379"),
			Password: config.String("settings.session.redis.password", ""),
			DB:       config.Int("settings.session.redis.db", 0),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, errors.Wrap(err, "ping redis")
		}

		store, err := session.NewRedisStore(rdb, redisSessionPrefix())
		if err != nil {
			_ = rdb.Close()
			return nil, nil, errors.Wrap(err, "new redis session store")
		}
		return store, rdb.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown session backend %q", backend)
	}
}

// purgeExpiredSessions drops expired sql sessions until ctx is done.
// Redis expires keys on its own.
func purgeExpiredSessions(ctx context.Context, store *session.SQLStore) {
	logger := log.Logger.Named("session_purge")
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := store.PurgeExpired(ctx)
		if err != nil {
			logger.Warn("purge expired sessions", zap.Error(err))
			continue
		}
		if n > 0 {
			logger.Debug("purged expired sessions", zap.Int64("count", n))
		}
	}
}
