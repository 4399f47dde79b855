// Package session persists small per-client key/value slots behind a cookie.
package session

import (
	"context"
	"regexp"
	"time"

	errors "github.com/Laisky/errors/v2"
)

var (
	regexpSessionKey = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	// ErrInvalidKey is returned for session keys outside [a-zA-Z0-9_-]{1,64}.
	ErrInvalidKey = errors.New("invalid session key")
)

// Values holds the session slots. Missing keys read as "".
type Values map[string]string

// Clone returns a copy of v that is never nil.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Store loads and saves session values.
// Loading an unknown or expired session returns empty Values and no error.
type Store interface {
	Load(ctx context.Context, key string) (Values, error)
	Save(ctx context.Context, key string, values Values, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func validKey(key string) error {
	if !regexpSessionKey.MatchString(key) {
		return errors.Wrapf(ErrInvalidKey, "key %q", key)
	}
	return nil
}
