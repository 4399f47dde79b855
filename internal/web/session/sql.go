package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"time"

	errors "github.com/Laisky/errors/v2"
)

var (
	_ Store = new(SQLStore)

	regexpTableName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)
)

// SQLStore keeps sessions in a single table. Statements use $n placeholders,
// which both go-sqlite3 and PostgreSQL accept.
type SQLStore struct {
	db    *sql.DB
	table string
	clock func() time.Time
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore) error

// WithTableName overrides the default `rango_sessions` table.
func WithTableName(table string) SQLOption {
	return func(s *SQLStore) error {
		if !regexpTableName.MatchString(table) {
			return errors.Errorf("invalid table name: %s", table)
		}
		s.table = table
		return nil
	}
}

// WithClock replaces time.Now, primarily for testing expiry.
func WithClock(clock func() time.Time) SQLOption {
	return func(s *SQLStore) error {
		if clock != nil {
			s.clock = clock
		}
		return nil
	}
}

// NewSQLStore creates the session table when missing and returns the store.
func NewSQLStore(db *sql.DB, opts ...SQLOption) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	s := &SQLStore{
		db:    db,
		table: "rango_sessions",
		clock: time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if err := s.setup(); err != nil {
		return nil, errors.Wrap(err, "setup session table")
	}

	return s, nil
}

func (s *SQLStore) setup() error {
	stmt := `
CREATE TABLE IF NOT EXISTS ` + s.table + ` (
  session_key TEXT PRIMARY KEY,
  data TEXT NOT NULL,
  expire_at TIMESTAMP NOT NULL
)`

	if _, err := s.db.Exec(stmt); err != nil {
		return errors.Wrap(err, "create session table")
	}

	return nil
}

// Load returns the stored values. Expired rows are removed and read as empty.
func (s *SQLStore) Load(ctx context.Context, key string) (Values, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	var (
		data     string
		expireAt time.Time
	)
	stmt := `SELECT data, expire_at FROM ` + s.table + ` WHERE session_key = $1 LIMIT 1`
	err := s.db.QueryRowContext(ctx, stmt, key).Scan(&data, &expireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Values{}, nil
		}
		return nil, errors.Wrap(err, "load session")
	}

	if s.clock().After(expireAt) {
		if err := s.Delete(ctx, key); err != nil {
			return nil, errors.Wrap(err, "delete expired session")
		}
		return Values{}, nil
	}

	values := Values{}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, errors.Wrapf(err, "decode session %s", key)
	}

	return values, nil
}

// Save upserts values with a time-to-live.
func (s *SQLStore) Save(ctx context.Context, key string, values Values, ttl time.Duration) error {
	if err := validKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.Errorf("ttl must be greater than 0: %s", ttl)
	}

	data, err := json.Marshal(values.Clone())
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	stmt := `
INSERT INTO ` + s.table + ` (session_key, data, expire_at)
VALUES ($1, $2, $3)
ON CONFLICT(session_key)
DO UPDATE SET data = EXCLUDED.data, expire_at = EXCLUDED.expire_at`

	expireAt := s.clock().Add(ttl).UTC()
	if _, err := s.db.ExecContext(ctx, stmt, key, string(data), expireAt); err != nil {
		return errors.Wrap(err, "upsert session")
	}

	return nil
}

// Delete removes the session.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	stmt := `DELETE FROM ` + s.table + ` WHERE session_key = $1`
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	stmt := `DELETE FROM ` + s.table + ` WHERE expire_at < $1`
	res, err := s.db.ExecContext(ctx, stmt, s.clock().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purge expired sessions")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "count purged sessions")
	}
	return n, nil
}
