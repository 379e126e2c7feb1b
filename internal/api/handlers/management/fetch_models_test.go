package management

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/traylinx/channelforge/internal/channel"
)

func upstream(t *testing.T, body string, wantAuth string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if wantAuth != "" {
			assert.Equal(t, "Bearer "+wantAuth, r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchUpstreamModels_OpenAIShape(t *testing.T) {
	srv := upstream(t, `{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"}]}`, "sk-test")
	r, _ := newTestRouter(&fakeStore{})

	w := doJSON(r, http.MethodPost, "/channels/fetch-models",
		`{"base_url": "`+srv.URL+`", "key": "sk-test"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	models := gjson.Get(w.Body.String(), "data").Array()
	require.Len(t, models, 2)
	assert.Equal(t, "gpt-4o", models[0].String())
}

func TestFetchUpstreamModels_OllamaShape(t *testing.T) {
	srv := upstream(t, `{"models":[{"name":"llama3:8b"}]}`, "")
	r, _ := newTestRouter(&fakeStore{})

	w := doJSON(r, http.MethodPost, "/channels/fetch-models",
		`{"base_url": "`+srv.URL+`", "key": "x"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "llama3:8b", gjson.Get(w.Body.String(), "data.0").String())
}

func TestFetchUpstreamModels_EmptyListIsNotAnError(t *testing.T) {
	srv := upstream(t, `{"data":[]}`, "sk-test")
	r, _ := newTestRouter(&fakeStore{})

	w := doJSON(r, http.MethodPost, "/channels/fetch-models",
		`{"base_url": "`+srv.URL+`", "key": "sk-test"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, gjson.Get(w.Body.String(), "success").Bool())
	assert.Empty(t, gjson.Get(w.Body.String(), "data").Array())
}

func TestFetchUpstreamModels_UnparsableBody(t *testing.T) {
	srv := upstream(t, `{"unexpected": true}`, "")
	r, _ := newTestRouter(&fakeStore{})

	w := doJSON(r, http.MethodPost, "/channels/fetch-models",
		`{"base_url": "`+srv.URL+`", "key": "x"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_error", gjson.Get(w.Body.String(), "error").String())
}

func TestFetchUpstreamModels_MissingKey(t *testing.T) {
	r, _ := newTestRouter(&fakeStore{})
	w := doJSON(r, http.MethodPost, "/channels/fetch-models", `{"base_url": "http://x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_key", gjson.Get(w.Body.String(), "error").String())
}

func TestFetchUpstreamModels_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	r, _ := newTestRouter(&fakeStore{})

	w := doJSON(r, http.MethodPost, "/channels/fetch-models",
		`{"base_url": "`+srv.URL+`", "key": "bad"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_error", gjson.Get(w.Body.String(), "error").String())
}

func TestFetchChannelModels_UsesStoredAggregatedKey(t *testing.T) {
	srv := upstream(t, `{"data":[{"id":"gpt-4o"}]}`, "k1")
	st := &fakeStore{channels: map[int64]channel.OutboundChannel{
		5: {ID: 5, BaseURL: srv.URL, Key: `["k1","k2"]`},
	}}
	r, _ := newTestRouter(st)

	w := doJSON(r, http.MethodGet, "/channels/5/models", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "gpt-4o", gjson.Get(w.Body.String(), "data.0").String())

	w = doJSON(r, http.MethodGet, "/channels/99/models", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
