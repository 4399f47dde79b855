package session

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	errors "github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

func setupTestStore(t *testing.T, opts ...SQLOption) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err, "failed to connect to in-memory db")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	store, err := NewSQLStore(db, append([]SQLOption{WithTableName("test_sessions")}, opts...)...)
	require.NoError(t, err)
	return store
}

func TestSQLStoreSaveAndLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	values, err := store.Load(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, values)

	require.NoError(t, store.Save(ctx, "abc", Values{"visits": "2", "last_visit": "2024-01-01 10:00:00.000000"}, time.Hour))
	values, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, Values{"visits": "2", "last_visit": "2024-01-01 10:00:00.000000"}, values)

	require.NoError(t, store.Save(ctx, "abc", Values{"visits": "3"}, time.Hour))
	values, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, Values{"visits": "3"}, values)

	require.NoError(t, store.Delete(ctx, "abc"))
	values, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestSQLStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := setupTestStore(t, WithClock(clock))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", Values{"visits": "1"}, time.Minute))
	require.NoError(t, store.Save(ctx, "long", Values{"visits": "5"}, 48*time.Hour))

	now = now.Add(2 * time.Minute)
	values, err := store.Load(ctx, "short")
	require.NoError(t, err)
	require.Empty(t, values)

	now = now.Add(24 * time.Hour)
	n, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	now = now.Add(48 * time.Hour)
	n, err = store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestSQLStoreValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "bad key!")
	require.ErrorIs(t, err, ErrInvalidKey)
	require.ErrorIs(t, store.Save(ctx, "", Values{}, time.Hour), ErrInvalidKey)
	require.Error(t, store.Save(ctx, "ok", Values{}, 0))

	_, err = NewSQLStore(nil)
	require.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewSQLStore(db, WithTableName("drop table;"))
	require.Error(t, err)
}

func TestSQLStoreDatabaseFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rango_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLStore(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT data, expire_at FROM rango_sessions").
		WithArgs("abc").
		WillReturnError(errors.New("disk I/O error"))
	_, err = store.Load(context.Background(), "abc")
	require.ErrorContains(t, err, "disk I/O error")

	mock.ExpectExec("INSERT INTO rango_sessions").
		WillReturnError(errors.New("database is locked"))
	err = store.Save(context.Background(), "abc", Values{"visits": "1"}, time.Hour)
	require.ErrorContains(t, err, "database is locked")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := NewRedisStore(rdb, "")
	require.NoError(t, err)
	require.Equal(t, DefaultRedisPrefix+"abc", store.redisKey("abc"))

	_, err = store.Load(context.Background(), "abc")
	require.Error(t, err)
	require.ErrorContains(t, err, "load session")

	_, err = store.Load(context.Background(), "../../etc")
	require.ErrorIs(t, err, ErrInvalidKey)
	require.Error(t, store.Save(context.Background(), "abc", Values{}, 0))

	_, err = NewRedisStore(nil, "")
	require.Error(t, err)
}

// memoryRedis serves the string commands RedisStore issues from a map.
type memoryRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewStringCmd(ctx, "get", key)
	if v, ok := m.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *memoryRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	default:
		cmd.SetErr(errors.Errorf("unsupported value type %T", value))
		return cmd
	}
	m.ttl[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewIntCmd(ctx, "del")
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			delete(m.ttl, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newMemoryRedis()
	store, err := NewRedisStore(rdb, "test/")
	require.NoError(t, err)

	values, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Empty(t, values)

	require.NoError(t, store.Save(ctx, "abc", Values{"visits": "2", "last_visit": "2024-01-01 10:00:00.000000"}, 14*24*time.Hour))
	require.Equal(t, 14*24*time.Hour, rdb.ttl["test/abc"])
	require.JSONEq(t, `{"visits":"2","last_visit":"2024-01-01 10:00:00.000000"}`, rdb.data["test/abc"])

	values, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, Values{"visits": "2", "last_visit": "2024-01-01 10:00:00.000000"}, values)

	require.NoError(t, store.Save(ctx, "abc", Values{"visits": "3"}, time.Hour))
	require.Equal(t, time.Hour, rdb.ttl["test/abc"])
	values, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, Values{"visits": "3"}, values)

	require.NoError(t, store.Delete(ctx, "abc"))
	require.NotContains(t, rdb.data, "test/abc")
	values, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Empty(t, values)

	rdb.data["test/broken"] = "{not json"
	_, err = store.Load(ctx, "broken")
	require.ErrorContains(t, err, "decode session")
}

func TestRedisStoreBehindMiddleware(t *testing.T) {
	rdb := newMemoryRedis()
	store, err := NewRedisStore(rdb, "")
	require.NoError(t, err)
	router := newTestRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/count", nil))
	require.Equal(t, "1", rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/count", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "2", rec.Body.String())
	require.Equal(t, DefaultTTL, rdb.ttl[DefaultRedisPrefix+cookies[0].Value])
}

func newTestRouter(store Store) *gin.Engine {
	setupGinTestMode()
	router := gin.New()
	router.Use(Middleware(store, Config{}, nil))
	router.GET("/count", func(c *gin.Context) {
		sess := FromGin(c)
		visits := sess.GetInt("visits", 0) + 1
		sess.SetInt("visits", visits)
		c.String(http.StatusOK, "%d", visits)
	})
	router.GET("/peek", func(c *gin.Context) {
		c.String(http.StatusOK, FromGin(c).Get("visits"))
	})
	return router
}

func TestMiddlewarePersistsAcrossRequests(t *testing.T) {
	store := setupTestStore(t)
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	for want := 2; want <= 3; want++ {
		req = httptest.NewRequest(http.MethodGet, "/count", nil)
		req.AddCookie(cookies[0])
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, strconv.Itoa(want), rec.Body.String())
	}

	values, err := store.Load(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	require.Equal(t, "3", values["visits"])
}

func TestMiddlewareReplacesInvalidCookie(t *testing.T) {
	store := setupTestStore(t)
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/peek", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not valid; key"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.NotEqual(t, "not valid; key", cookies[0].Value)
	require.NoError(t, validKey(cookies[0].Value))
}

type brokenStore struct{}

func (brokenStore) Load(context.Context, string) (Values, error) {
	return nil, errors.New("backend down")
}

func (brokenStore) Save(context.Context, string, Values, time.Duration) error {
	return errors.New("backend down")
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.New("backend down")
}

func TestMiddlewareLoadFailure(t *testing.T) {
	router := newTestRouter(brokenStore{})

	req := httptest.NewRequest(http.MethodGet, "/count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionSetOnlyMarksRealChanges(t *testing.T) {
	sess := &Session{key: "k", values: Values{"visits": "1"}}
	sess.Set("visits", "1")
	_, dirty := sess.snapshot()
	require.False(t, dirty)

	sess.SetInt("visits", 2)
	values, dirty := sess.snapshot()
	require.True(t, dirty)
	require.Equal(t, "2", values["visits"])
	require.Equal(t, 7, (&Session{values: Values{"visits": "x"}}).GetInt("visits", 7))
}
