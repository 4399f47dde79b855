package session

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/z-Shi/TangoWithDjango/library/log"
)

const (
	// DefaultCookieName matches the cookie name Django uses for sessions.
	DefaultCookieName = "sessionid"
	// DefaultTTL is two weeks.
	DefaultTTL = 14 * 24 * time.Hour

	ginCtxKey   = "rango_session"
	saveTimeout = 5 * time.Second
)

// Config controls the session cookie.
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}

// Session is the request-scoped view of one stored session.
type Session struct {
	mu     sync.Mutex
	key    string
	values Values
	dirty  bool
}

// Key returns the session identifier carried by the cookie.
func (s *Session) Key() string {
	return s.key
}

// Get returns the value at name, or "" when unset.
func (s *Session) Get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name]
}

// GetInt returns the integer at name, or def when unset or not a number.
func (s *Session) GetInt(name string, def int) int {
	raw := s.Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Set stores value at name; the session is saved once the request completes.
func (s *Session) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.values[name]; ok && current == value {
		return
	}
	s.values[name] = value
	s.dirty = true
}

// SetInt stores an integer at name.
func (s *Session) SetInt(name string, value int) {
	s.Set(name, strconv.Itoa(value))
}

func (s *Session) snapshot() (Values, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone(), s.dirty
}

// FromGin returns the session attached by Middleware, or nil.
func FromGin(c *gin.Context) *Session {
	v, ok := c.Get(ginCtxKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}

// Middleware attaches a *Session to every request and persists it afterwards
// when a handler changed it. Clients without a valid cookie get a new session id.
func Middleware(store Store, cfg Config, logger logSDK.Logger) gin.HandlerFunc {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Logger.Named("session")
	}

	return func(c *gin.Context) {
		reqLogger := logger
		if ctxLogger := gmw.GetLogger(c); ctxLogger != nil {
			reqLogger = ctxLogger.Named("session")
		}

		key, err := c.Cookie(cfg.CookieName)
		if err != nil || validKey(key) != nil {
			key = newKey()
		}

		values, err := store.Load(c.Request.Context(), key)
		if err != nil {
			reqLogger.Error("load session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		sess := &Session{key: key, values: values.Clone()}
		c.Set(ginCtxKey, sess)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, key, int(cfg.TTL/time.Second), "/", "", cfg.Secure, true)

		c.Next()

		snapshot, dirty := sess.snapshot()
		if !dirty {
			return
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), saveTimeout)
		defer cancel()
		if err := store.Save(ctx, key, snapshot, cfg.TTL); err != nil {
			reqLogger.Error("save session", zap.Error(err))
		}
	}
}

func newKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
