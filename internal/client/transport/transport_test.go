package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
)

type staticTokens struct {
	mu  sync.Mutex
	tok string
}

func (s *staticTokens) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok
}

func (s *staticTokens) set(tok string) {
	s.mu.Lock()
	s.tok = tok
	s.mu.Unlock()
}

type expireRecorder struct {
	calls atomic.Int32
}

func (e *expireRecorder) Expire(context.Context) { e.calls.Add(1) }

func newTestTransport(t *testing.T, h http.HandlerFunc, opts ...Option) *Transport {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tr, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return tr
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080")
	require.Error(t, err)

	_, err = New("/api")
	require.Error(t, err)
}

func TestSend_Envelope(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recipes", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.False(t, r.URL.Query().Has("category"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":"r1"}],"pagination":{"page":2,"limit":10,"totalItems":11,"totalPages":2}}`)
	})

	res, err := tr.Send(context.Background(), http.MethodGet, "/recipes", nil,
		WithQuery(url.Values{"page": {"2"}, "category": {""}}))
	require.NoError(t, err)
	require.Equal(t, api.KindOK, res.Kind)
	require.NotNil(t, res.Pagination)
	assert.Equal(t, 11, res.Pagination.TotalItems)

	var items []struct{ ID string }
	require.NoError(t, res.Decode(&items))
	assert.Equal(t, "r1", items[0].ID)
}

func TestSend_PassThrough(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"ok"}`)
	})

	res, err := tr.Send(context.Background(), http.MethodGet, "/health", nil)
	require.NoError(t, err)
	assert.Equal(t, api.KindPassThrough, res.Kind)
}

func TestSend_Headers(t *testing.T) {
	tokens := &staticTokens{}
	var mu sync.Mutex
	var seen []http.Header

	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Clone())
		mu.Unlock()
		writeJSON(w, http.StatusOK, `{"success":true,"data":null}`)
	}, WithUserAgent("test-agent"))
	tr.SetAuth(tokens, nil)

	ctx := context.Background()
	_, err := tr.Send(ctx, http.MethodGet, "/auth/verify", nil)
	require.NoError(t, err)

	tokens.set("t1")
	_, err = tr.Send(ctx, http.MethodGet, "/auth/verify", nil, WithHeader("X-Trace", "abc"))
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Empty(t, seen[0].Get("Authorization"))
	assert.Equal(t, "Bearer t1", seen[1].Get("Authorization"))
	assert.Equal(t, "abc", seen[1].Get("X-Trace"))
	assert.Equal(t, "test-agent", seen[1].Get("User-Agent"))

	_, err = uuid.Parse(seen[0].Get(headerRequestID))
	require.NoError(t, err)
	assert.NotEqual(t, seen[0].Get(headerRequestID), seen[1].Get(headerRequestID))
}

func TestSend_JSONBody(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.c", in["email"])
		writeJSON(w, http.StatusOK, `{"success":true,"data":{}}`)
	})

	_, err := tr.Send(context.Background(), http.MethodPost, "/auth/login", map[string]string{"email": "a@b.c"})
	require.NoError(t, err)
}

func TestSend_MultipartHasNoJSONContentType(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		assert.True(t, strings.HasPrefix(ct, "multipart/form-data; boundary="), ct)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Pancakes", r.FormValue("title"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cake.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.Equal(t, []byte{1, 2, 3}, data)

		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":"r1"}}`)
	})

	body := NewMultipart().
		AddField("title", "Pancakes").
		AddFile(FilePart{FieldName: "image", FileName: "cake.png", ContentType: "image/png", Data: []byte{1, 2, 3}})

	_, err := tr.Send(context.Background(), http.MethodPost, "/recipes", body)
	require.NoError(t, err)
}

func TestSend_RawBodyHasNoContentType(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "raw", string(data))
		writeJSON(w, http.StatusOK, `{"success":true,"data":null}`)
	})

	_, err := tr.Send(context.Background(), http.MethodPut, "/upload", strings.NewReader("raw"))
	require.NoError(t, err)
}

func TestSend_ValidationError(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest,
			`{"success":false,"error":{"code":"validation_error","message":"Invalid input","fields":{"email":"is required"}}}`)
	})

	_, err := tr.Send(context.Background(), http.MethodPost, "/auth/register", map[string]string{})
	apiErr, ok := api.As(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsValidation())
	assert.Equal(t, map[string]string{"email": "is required"}, apiErr.FieldErrors())
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode())
}

func TestSend_SuccessFalseWith200(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"error":{"code":"conflict","message":"Already exists"}}`)
	})

	_, err := tr.Send(context.Background(), http.MethodPost, "/recipes/1/favorite", nil)
	apiErr, ok := api.As(err)
	require.True(t, ok)
	assert.Equal(t, "conflict", apiErr.Code())
	assert.Equal(t, "Already exists", apiErr.Message())
}

func TestSend_UnauthorizedTriggersExpire(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http 401", http.StatusUnauthorized, `{"success":false,"error":{"code":"unauthorized","message":"Token expired"}}`},
		{"envelope code 401", http.StatusOK, `{"success":false,"error":{"code":401,"message":"Token expired"}}`},
		{"plain 401", http.StatusUnauthorized, `Unauthorized`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			rec := &expireRecorder{}
			tr.SetAuth(&staticTokens{tok: "stale"}, rec)

			_, err := tr.Send(context.Background(), http.MethodGet, "/auth/verify", nil)
			require.Error(t, err)
			assert.True(t, api.IsUnauthorized(err))
			assert.Equal(t, int32(1), rec.calls.Load())
		})
	}
}

func TestSend_OtherErrorsDoNotExpire(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"success":false,"error":{"code":"forbidden","message":"Not yours"}}`)
	})
	rec := &expireRecorder{}
	tr.SetAuth(&staticTokens{tok: "t1"}, rec)

	_, err := tr.Send(context.Background(), http.MethodDelete, "/recipes/1", nil)
	apiErr, ok := api.As(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsForbidden())
	assert.Zero(t, rec.calls.Load())
}

func TestSend_CanceledContext(t *testing.T) {
	release := make(chan struct{})
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":null}`)
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Send(ctx, http.MethodGet, "/recipes", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)

	_, isAPIErr := api.As(err)
	assert.False(t, isAPIErr)
}

func TestSend_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	tr, err := New(base)
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), http.MethodGet, "/recipes", nil)
	apiErr, ok := api.As(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNetwork())
	assert.Equal(t, api.DefaultNetworkMessage, apiErr.Message())
}

func TestSend_RateLimitWaitHonoursCancel(t *testing.T) {
	var hits atomic.Int32
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `{"success":true,"data":null}`)
	}, WithRateLimit(0.001, 1))

	_, err := tr.Send(context.Background(), http.MethodGet, "/config", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Send(ctx, http.MethodGet, "/config", nil)
	assert.ErrorIs(t, err, api.ErrCanceled)
	assert.Equal(t, int32(1), hits.Load())
}

func TestWithRateLimit_ZeroDisables(t *testing.T) {
	tr, err := New("http://localhost", WithRateLimit(0, 5))
	require.NoError(t, err)
	assert.Nil(t, tr.limiter)
}

func TestNew_NoClientTimeout(t *testing.T) {
	tr, err := New("http://localhost")
	require.NoError(t, err)
	assert.Zero(t, tr.httpClient.Timeout)
}
