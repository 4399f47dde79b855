package search

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"
	"sync/atomic"

	errors "github.com/Laisky/errors/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCredentialFiles are looked up in order when no paths are configured.
var DefaultCredentialFiles = []string{"bing.key", "../bing.key"}

// FileReader reads a whole file. os.ReadFile is used unless overridden.
type FileReader func(path string) ([]byte, error)

// CredentialLoader resolves the search subscription key from an ordered list
// of candidate files. The first successfully loaded key is kept for the
// lifetime of the loader; failed loads are retried on the next call.
type CredentialLoader struct {
	paths  []string
	reader FileReader

	cached atomic.Pointer[string]
	group  singleflight.Group
}

// CredentialOption customises a CredentialLoader.
type CredentialOption func(*CredentialLoader)

// WithFileReader replaces the file reader, primarily for testing.
func WithFileReader(reader FileReader) CredentialOption {
	return func(l *CredentialLoader) {
		if reader != nil {
			l.reader = reader
		}
	}
}

// NewCredentialLoader builds a loader over paths, tried in the given order.
// An empty list falls back to DefaultCredentialFiles.
func NewCredentialLoader(paths []string, opts ...CredentialOption) *CredentialLoader {
	candidates := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, DefaultCredentialFiles...)
	}

	l := &CredentialLoader{
		paths:  candidates,
		reader: os.ReadFile,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Paths returns a copy of the candidate paths.
func (l *CredentialLoader) Paths() []string {
	return append([]string(nil), l.paths...)
}

// Load returns the credential, reading it on first use.
func (l *CredentialLoader) Load(ctx context.Context) (string, error) {
	if key := l.cached.Load(); key != nil {
		return *key, nil
	}

	ch := l.group.DoChan("credential", func() (any, error) {
		if key := l.cached.Load(); key != nil {
			return *key, nil
		}

		key, err := l.read()
		if err != nil {
			return "", err
		}

		l.cached.Store(&key)
		return key, nil
	})

	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "wait for credential")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// read walks the candidate paths. The first readable file decides the outcome,
// so an empty primary file is an error even when a fallback exists.
func (l *CredentialLoader) read() (string, error) {
	var lastErr error
	for _, path := range l.paths {
		content, err := l.reader(path)
		if err != nil {
			lastErr = err
			continue
		}

		key := strings.TrimSpace(firstLine(content))
		if key == "" {
			return "", &ConfigurationError{Reason: ReasonCredentialEmpty}
		}

		return key, nil
	}

	return "", &ConfigurationError{
		Reason: ReasonCredentialMissing,
		Err:    errors.Wrapf(lastErr, "tried %s", strings.Join(l.paths, ", ")),
	}
}

func firstLine(content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}
