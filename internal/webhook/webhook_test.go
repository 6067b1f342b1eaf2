package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_PostsMultipartFile(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "image.png", header.Filename)
		assert.Equal(t, "application/octet-stream", header.Header.Get("Content-Type"))
		got, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := New(Options{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	out, err := n.Notify(context.Background(), []byte("raw bytes"))
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, []byte("raw bytes"), got)
}

func TestNotify_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(Options{URL: srv.URL}, zerolog.Nop())
	_, err := n.Notify(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrStatus)
}

func TestNotify_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(Options{URL: srv.URL}, zerolog.Nop())
	for i := 0; i < 10; i++ {
		_, _ = n.Notify(context.Background(), []byte("x"))
	}
	assert.Equal(t, int32(5), hits.Load())
}

func TestDispatch_SyncBlocksAndSwallowsErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(Options{URL: srv.URL}, zerolog.Nop())
	n.Dispatch(context.Background(), []byte("x"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDispatch_AsyncSurvivesCancelledRequest(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := New(Options{URL: srv.URL, Async: true, Timeout: 5 * time.Second}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	n.Dispatch(ctx, []byte("x"))
	cancel()
	close(release)
	n.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestDispatch_DisabledIsNoop(t *testing.T) {
	n := New(Options{}, zerolog.Nop())
	assert.False(t, n.Enabled())
	n.Dispatch(context.Background(), []byte("x"))
	n.Wait()

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
	nilNotifier.Dispatch(context.Background(), []byte("x"))
}
