// Package visit decides when a returning client counts as a new visit.
//
// Visit state travels as two scalars: an integer counter and a timestamp
// string such as "2024-01-01 10:00:00.000000". The trailing seven characters
// (the fractional-seconds suffix) are dropped before parsing, so stored
// timestamps have second precision. A new visit is recorded once at least
// one whole day has elapsed, counting whole 24h periods of wall-clock time:
// both ends are compared by their calendar fields, so DST shifts in the
// caller's zone neither add nor remove an hour.
package visit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
)

const (
	// TimestampLayout is how Track serialises a fresh last-visit time.
	TimestampLayout = "2006-01-02 15:04:05.000000"

	parseLayout  = "2006-01-02 15:04:05"
	parseLayoutT = "2006-01-02T15:04:05"
	suffixLength = len(".000000")
	day          = 24 * time.Hour
)

// State is the visit bookkeeping persisted by the caller.
type State struct {
	Visits    int    `json:"visits"`
	LastVisit string `json:"last_visit"`
}

// MalformedStateError reports a last-visit value that cannot be parsed.
type MalformedStateError struct {
	Value string
	Err   error
}

func (e *MalformedStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed visit state %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("malformed visit state %q", e.Value)
}

func (e *MalformedStateError) Unwrap() error {
	return e.Err
}

// IsMalformedState reports whether err wraps a *MalformedStateError.
func IsMalformedState(err error) bool {
	var target *MalformedStateError
	return errors.As(err, &target)
}

// Policy selects how Track reacts to a malformed last-visit value.
type Policy string

const (
	// PolicyReject returns a *MalformedStateError.
	PolicyReject Policy = "reject"
	// PolicyResetAsFresh treats malformed state like a first visit.
	PolicyResetAsFresh Policy = "reset"
)

// ParsePolicy converts a configuration value into a Policy. Empty means PolicyReject.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyResetAsFresh:
		return PolicyResetAsFresh, nil
	default:
		return "", errors.Errorf("unknown malformed visit policy %q", raw)
	}
}

// Tracker applies the new-day rule. The zero value uses PolicyReject.
type Tracker struct {
	policy Policy
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithPolicy sets the malformed-state policy.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) {
		t.policy = p
	}
}

// NewTracker returns a Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{policy: PolicyReject}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the configured malformed-state policy.
func (t *Tracker) Policy() Policy {
	if t == nil || t.policy == "" {
		return PolicyReject
	}
	return t.policy
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp strips the fractional suffix from raw and parses the rest
// in loc with second precision. Track parses in UTC and compares against
// the wall clock of now.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	if len(raw) <= suffixLength {
		return time.Time{}, errors.Errorf("timestamp %q is too short", raw)
	}

	trimmed := raw[:len(raw)-suffixLength]
	parsed, err := time.ParseInLocation(parseLayout, trimmed, loc)
	if err == nil {
		return parsed, nil
	}
	if parsedT, errT := time.ParseInLocation(parseLayoutT, trimmed, loc); errT == nil {
		return parsedT, nil
	}

	return time.Time{}, errors.Wrapf(err, "parse timestamp %q", trimmed)
}

// Track returns the state to persist after a request observed at now.
//
// A missing counter (0) counts as one visit and a missing timestamp as now.
// A negative counter is malformed. Visits grows by exactly one when at least
// one whole wall-clock day separates now from the stored timestamp; LastVisit
// then becomes now. Otherwise in is returned with its timestamp string untouched.
func (t *Tracker) Track(in State, now time.Time) (State, error) {
	if in.Visits < 0 {
		return t.malformed(in, now, strconv.Itoa(in.Visits),
			errors.Errorf("visit count %d is negative", in.Visits))
	}

	out := in
	if out.Visits == 0 {
		out.Visits = 1
	}
	if out.LastVisit == "" {
		out.LastVisit = FormatTimestamp(now)
	}

	last, err := ParseTimestamp(out.LastVisit, time.UTC)
	if err != nil {
		return t.malformed(in, now, out.LastVisit, err)
	}

	if wholeDays(wallClock(now).Sub(last)) > 0 {
		out.Visits++
		out.LastVisit = FormatTimestamp(now)
	}

	return out, nil
}

func (t *Tracker) malformed(in State, now time.Time, value string, err error) (State, error) {
	if t.Policy() == PolicyResetAsFresh {
		return State{Visits: 1, LastVisit: FormatTimestamp(now)}, nil
	}
	return in, &MalformedStateError{Value: value, Err: err}
}

// wallClock drops the zone of now, keeping its calendar fields at second precision.
func wallClock(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
}

// wholeDays floors d to whole days, so negative durations never count.
func wholeDays(d time.Duration) int {
	return int(math.Floor(float64(d) / float64(day)))
}
