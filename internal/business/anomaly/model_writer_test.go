package anomaly

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basketwatch/pkg/errorutil"
)

// newChatServer 模拟 Chat Completions 接口，content 作为 assistant 回复
func newChatServer(t *testing.T, status int, content string, calls *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.Equal(t, float64(0), req["temperature"])
		// 金额以 JSON 数字传给模型
		assert.Contains(t, string(body), `\"basket_value\":1250`)
		assert.Contains(t, string(body), `\"purchase_price\":250,`)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestModelWriter(srv *httptest.Server) *ModelWriter {
	return NewModelWriter(ModelWriterConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1/",
		HTTPClient: srv.Client(),
	})
}

func TestModelWriterExplain(t *testing.T) {
	var calls int64
	srv := newChatServer(t, http.StatusOK, "```json\n[\"big espresso order\", \"many grinders\", \"two machines\"]\n```", &calls)

	out, err := newTestModelWriter(srv).Explain(context.Background(), 450, enrichedSample())
	require.NoError(t, err)
	assert.Equal(t, []string{"big espresso order", "many grinders", "two machines"}, out)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestModelWriterMalformed(t *testing.T) {
	for _, content := range []string{
		"these orders look large",
		`["only one"]`,
		`["a", "", "c"]`,
	} {
		var calls int64
		srv := newChatServer(t, http.StatusOK, content, &calls)

		_, err := newTestModelWriter(srv).Explain(context.Background(), 450, enrichedSample())
		assert.True(t, errorutil.Is(err, errorutil.KindMalformedResponse), "content %q: %v", content, err)
	}
}

func TestModelWriterUnavailableNoRetry(t *testing.T) {
	var calls int64
	srv := newChatServer(t, http.StatusServiceUnavailable, "", &calls)

	_, err := newTestModelWriter(srv).Explain(context.Background(), 450, enrichedSample())
	assert.True(t, errorutil.Is(err, errorutil.KindModelUnavailable), "got %v", err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestModelWriterThroughFormatter(t *testing.T) {
	var calls int64
	srv := newChatServer(t, http.StatusOK, `["x1", "x2", "x3"]`, &calls)

	report, err := NewFormatter(newTestModelWriter(srv)).Format(context.Background(), enrichedSample(), 450)
	require.NoError(t, err)
	require.Len(t, report, 3)
	assert.Equal(t, []string{"x2"}, report[1].Issues)
}
