package visit

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.UTC)
	require.NoError(t, err)
	return parsed
}

func TestTrackDayBoundary(t *testing.T) {
	tracker := NewTracker()
	prev := State{Visits: 3, LastVisit: "2024-01-01 10:00:00.123456"}

	tests := []struct {
		name       string
		now        string
		wantVisits int
		wantLast   string
	}{
		{
			name:       "one day and one second later increments",
			now:        "2024-01-02T10:00:01",
			wantVisits: 4,
			wantLast:   "2024-01-02 10:00:01.000000",
		},
		{
			name:       "exactly one day later increments",
			now:        "2024-01-02T10:00:00",
			wantVisits: 4,
			wantLast:   "2024-01-02 10:00:00.000000",
		},
		{
			name:       "same calendar day keeps state",
			now:        "2024-01-01T23:00:00",
			wantVisits: 3,
			wantLast:   "2024-01-01 10:00:00.123456",
		},
		{
			name:       "next calendar day but under 24h keeps state",
			now:        "2024-01-02T09:59:59",
			wantVisits: 3,
			wantLast:   "2024-01-01 10:00:00.123456",
		},
		{
			name:       "several days still increments once",
			now:        "2024-01-09T08:00:00",
			wantVisits: 4,
			wantLast:   "2024-01-09 08:00:00.000000",
		},
		{
			name:       "clock behind stored value keeps state",
			now:        "2023-12-31T10:00:00",
			wantVisits: 3,
			wantLast:   "2024-01-01 10:00:00.123456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tracker.Track(prev, at(t, tt.now))
			require.NoError(t, err)
			require.Equal(t, tt.wantVisits, got.Visits)
			require.Equal(t, tt.wantLast, got.LastVisit)
		})
	}
}

func TestTrackDefaults(t *testing.T) {
	now := at(t, "2024-03-05T12:30:45")

	got, err := NewTracker().Track(State{}, now)
	require.NoError(t, err)
	require.Equal(t, State{Visits: 1, LastVisit: "2024-03-05 12:30:45.000000"}, got)

	got, err = NewTracker().Track(State{LastVisit: "2024-03-05 12:00:00.000000"}, now)
	require.NoError(t, err)
	require.Equal(t, State{Visits: 1, LastVisit: "2024-03-05 12:00:00.000000"}, got)
}

func TestTrackNegativeVisits(t *testing.T) {
	now := at(t, "2024-03-05T12:30:45")
	in := State{Visits: -4, LastVisit: "2024-03-05 12:00:00.000000"}

	got, err := NewTracker().Track(in, now)
	require.True(t, IsMalformedState(err))
	require.Equal(t, in, got)

	var malformed *MalformedStateError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "-4", malformed.Value)

	got, err = NewTracker(WithPolicy(PolicyResetAsFresh)).Track(in, now)
	require.NoError(t, err)
	require.Equal(t, State{Visits: 1, LastVisit: "2024-03-05 12:30:45.000000"}, got)
}

func TestTrackIsIdempotentWithinADay(t *testing.T) {
	tracker := NewTracker()
	now := at(t, "2024-01-05T08:00:00")

	first, err := tracker.Track(State{Visits: 1, LastVisit: "2024-01-01 08:00:00.000000"}, now)
	require.NoError(t, err)
	require.Equal(t, 2, first.Visits)

	second, err := tracker.Track(first, now)
	require.NoError(t, err)
	require.Equal(t, first, second)

	third, err := tracker.Track(second, now.Add(23*time.Hour))
	require.NoError(t, err)
	require.Equal(t, first, third)
}

func TestTrackMalformedState(t *testing.T) {
	now := at(t, "2024-01-05T08:00:00")
	for _, raw := range []string{
		"garbage",
		"2024-01-01 10:00:00",
		"2024-13-01 10:00:00.000000",
		"not a timestamp at all.000000",
	} {
		in := State{Visits: 7, LastVisit: raw}

		got, err := NewTracker().Track(in, now)
		require.Error(t, err, raw)
		require.True(t, IsMalformedState(err))
		require.Equal(t, in, got)

		var malformed *MalformedStateError
		require.ErrorAs(t, err, &malformed)
		require.Equal(t, raw, malformed.Value)

		got, err = NewTracker(WithPolicy(PolicyResetAsFresh)).Track(in, now)
		require.NoError(t, err)
		require.Equal(t, State{Visits: 1, LastVisit: "2024-01-05 08:00:00.000000"}, got)
	}
}

func TestTrackAcceptsISOSeparator(t *testing.T) {
	got, err := NewTracker().Track(
		State{Visits: 2, LastVisit: "2024-01-01T10:00:00.000000"},
		at(t, "2024-01-02T10:00:01"),
	)
	require.NoError(t, err)
	require.Equal(t, 3, got.Visits)
}

func TestTrackUsesCallerWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, loc)

	got, err := NewTracker().Track(State{Visits: 1, LastVisit: "2024-01-01 10:00:00.000000"}, now)
	require.NoError(t, err)
	require.Equal(t, 1, got.Visits)
}

func TestParsePolicy(t *testing.T) {
	for raw, want := range map[string]Policy{
		"":        PolicyReject,
		"reject":  PolicyReject,
		" RESET ": PolicyResetAsFresh,
	} {
		got, err := ParsePolicy(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParsePolicy("ignore")
	require.Error(t, err)

	var zero *Tracker
	require.Equal(t, PolicyReject, zero.Policy())
}

func TestFormatTimestampAlwaysHasSuffix(t *testing.T) {
	ts := FormatTimestamp(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	require.Equal(t, "2024-01-01 10:00:00.000000", ts)

	parsed, err := ParseTimestamp(ts, time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), parsed)
}

func TestTrackCountsWallClockDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name      string
		last      string
		now       time.Time
		wantVisit int
	}{
		{
			name:      "spring forward, one wall-clock day is 23h",
			last:      "2024-03-09 10:00:00.000000",
			now:       time.Date(2024, 3, 10, 10, 0, 30, 0, ny),
			wantVisit: 2,
		},
		{
			name:      "spring forward, just short of a wall-clock day",
			last:      "2024-03-09 10:00:00.000000",
			now:       time.Date(2024, 3, 10, 9, 59, 59, 0, ny),
			wantVisit: 1,
		},
		{
			name:      "fall back, 24.5h elapsed is 23.5h on the wall clock",
			last:      "2024-11-02 10:00:00.000000",
			now:       time.Date(2024, 11, 3, 9, 30, 0, 0, ny),
			wantVisit: 1,
		},
		{
			name:      "fall back, one wall-clock day is 25h",
			last:      "2024-11-02 10:00:00.000000",
			now:       time.Date(2024, 11, 3, 10, 0, 0, 0, ny),
			wantVisit: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTracker().Track(State{Visits: 1, LastVisit: tt.last}, tt.now)
			require.NoError(t, err)
			require.Equal(t, tt.wantVisit, got.Visits)
			if tt.wantVisit == 2 {
				require.Equal(t, FormatTimestamp(tt.now), got.LastVisit)
			} else {
				require.Equal(t, tt.last, got.LastVisit)
			}
		})
	}
}
