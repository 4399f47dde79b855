package mcp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/z-Shi/TangoWithDjango/library/log"
)

// TestShouldDowngradeMCPErrorLog verifies capability probes are downgraded.
func TestShouldDowngradeMCPErrorLog(t *testing.T) {
	require.True(t, shouldDowngradeMCPErrorLog(mcp.MethodResourcesList, requireError("request error: resources not supported")))
	require.True(t, shouldDowngradeMCPErrorLog(mcp.MethodResourcesTemplatesList, requireError("resources not supported")))
	require.True(t, shouldDowngradeMCPErrorLog(mcp.MethodPromptsList, requireError("Prompts not supported")))
}

// TestShouldDowngradeMCPErrorLogFalse verifies unrelated errors remain at error level.
func TestShouldDowngradeMCPErrorLogFalse(t *testing.T) {
	require.False(t, shouldDowngradeMCPErrorLog(mcp.MethodToolsList, requireError("resources not supported")))
	require.False(t, shouldDowngradeMCPErrorLog(mcp.MethodResourcesList, requireError("other failure")))
	require.False(t, shouldDowngradeMCPErrorLog(mcp.MethodPromptsList, requireError("resources not supported")))
	require.False(t, shouldDowngradeMCPErrorLog(mcp.MethodResourcesList, nil))
}

func TestWithHTTPLoggingKeepsBodies(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(data)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	handler := withHTTPLogging(next, log.Logger.Named("test_mcp_http"))
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, `{"jsonrpc":"2.0"}`, seen, "downstream handler must still read the body")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, `{"ok":true}`, rec.Body.String())
}

func TestLoggingResponseWriterTruncates(t *testing.T) {
	rec := httptest.NewRecorder()
	lrw := &loggingResponseWriter{ResponseWriter: rec, bodyLimit: 4}

	_, err := lrw.Write([]byte("abcdef"))
	require.NoError(t, err)
	_, err = lrw.Write([]byte("gh"))
	require.NoError(t, err)

	body, truncated := lrw.Body()
	require.Equal(t, "abcd", body)
	require.True(t, truncated)
	require.Equal(t, http.StatusOK, lrw.Status())
	require.Equal(t, "abcdefgh", rec.Body.String())
}

func TestPayloadForLog(t *testing.T) {
	require.Equal(t, `{"query":"django"}`, payloadForLog(map[string]string{"query": "django"}))

	long := payloadForLog(strings.Repeat("x", httpLogBodyLimit*2))
	require.True(t, strings.HasSuffix(long, "...(truncated)"))
	require.Len(t, long, httpLogBodyLimit+len("...(truncated)"))

	require.Equal(t, "<unencodable payload>", payloadForLog(make(chan int)))
}

// requireError converts text to an error for test readability.
func requireError(msg string) error {
	return &textError{msg: msg}
}

// textError is a lightweight test error implementation.
type textError struct {
	msg string
}

// Error returns the test error message.
func (e *textError) Error() string {
	if e == nil {
		return ""
	}
	return e.msg
}
