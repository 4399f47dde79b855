package search

import (
	"context"
	"net/http"
	"testing"

	errors "github.com/Laisky/errors/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type failingTransport struct {
	t *testing.T
}

func (f failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.t.Errorf("stub engine must not touch the network")
	return nil, errors.New("network disabled")
}

func TestStubEngineIsDeterministicAndOffline(t *testing.T) {
	origTransport := http.DefaultTransport
	http.DefaultTransport = failingTransport{t: t}
	t.Cleanup(func() { http.DefaultTransport = origTransport })

	engine := NewStubEngine()
	require.Equal(t, EngineStub, engine.Name())

	for _, query := range []string{"python", "django tango", "<script>", "  spaced  "} {
		results, err := engine.Search(context.Background(), query)
		require.NoError(t, err)
		require.Equal(t, []SearchResult{StubResult}, results)
	}
}

func TestStubEngineIgnoresCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewStubEngine().Search(ctx, "rango")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

type scriptedEngine struct {
	name    string
	results []SearchResult
	err     error
}

func (e *scriptedEngine) Name() string { return e.name }

func (e *scriptedEngine) Search(context.Context, string) ([]SearchResult, error) {
	return e.results, e.err
}

func TestInstrumentPassesThrough(t *testing.T) {
	ok := &scriptedEngine{name: "instrument_ok", results: []SearchResult{{Title: "a"}}}
	engine := Instrument(ok)
	require.Same(t, engine, Instrument(engine))
	require.Equal(t, "instrument_ok", engine.Name())

	results, err := engine.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, ok.results, results)
	require.InDelta(t, 1, testutil.ToFloat64(RequestsTotal.WithLabelValues("instrument_ok", statusOK)), 0)

	upstream := &UpstreamError{StatusCode: http.StatusBadGateway}
	failing := Instrument(&scriptedEngine{name: "instrument_fail", err: upstream})
	_, err = failing.Search(context.Background(), "q")
	require.ErrorIs(t, err, upstream)
	require.InDelta(t, 1, testutil.ToFloat64(RequestsTotal.WithLabelValues("instrument_fail", statusUpstream)), 0)

	cfg := Instrument(&scriptedEngine{name: "instrument_cfg", err: &ConfigurationError{Reason: ReasonCredentialEmpty}})
	_, err = cfg.Search(context.Background(), "q")
	require.True(t, IsConfigurationError(err))
	require.InDelta(t, 1, testutil.ToFloat64(RequestsTotal.WithLabelValues("instrument_cfg", statusConfiguration)), 0)

	require.Nil(t, Instrument(nil))
}

func TestErrorMessages(t *testing.T) {
	require.Equal(t, "search configuration error: credential empty",
		(&ConfigurationError{Reason: ReasonCredentialEmpty}).Error())
	require.Equal(t, "search upstream error: status 503: Service Unavailable",
		(&UpstreamError{StatusCode: 503, Reason: "Service Unavailable"}).Error())
	require.Equal(t, "search upstream error: unexpected response shape",
		(&UpstreamError{Reason: ReasonUnexpectedShape}).Error())
}
