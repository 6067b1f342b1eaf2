package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediagate/uploader/internal/auth"
	"github.com/mediagate/uploader/internal/user"
)

func newVerifier(t *testing.T) (*auth.Verifier, string) {
	t.Helper()
	token, err := auth.GenerateToken(7, []byte("k"))
	require.NoError(t, err)
	dir, err := user.NewDirectory([]user.User{{Name: "alice", ID: 7, Token: token}})
	require.NoError(t, err)
	return auth.NewVerifier(dir, zerolog.Nop()), token
}

func TestRequireAuth(t *testing.T) {
	v, token := newVerifier(t)

	var got user.User
	h := RequireAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/config", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
	assert.Equal(t, "alice", got.Name)
}

func TestUserFrom_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserFrom(req.Context())
	assert.False(t, ok)
}

func TestRateLimiter_PerClient(t *testing.T) {
	l := NewRateLimiter(1, 2)
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/file", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000"))
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	l := NewRateLimiter(0, 0)
	h := l.Handler(next)
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_EvictsIdle(t *testing.T) {
	now := time.Now()
	l := NewRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.allow("a")
	now = now.Add(limiterIdleTTL + time.Minute)
	l.allow("b")
	l.evict()

	assert.NotContains(t, l.visitors, "a")
	assert.Contains(t, l.visitors, "b")
}

func TestMetricsAndLogger_UseRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logger(zerolog.Nop()))
	r.Use(Metrics)

	var seen string
	r.Get("/file/{file_name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.Get("/probe/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = routeOrPath(r)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/file/secret-token?user_id=7", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/probe/abc", nil))
	assert.Equal(t, "/probe/{id}", seen)
}
