package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"site-ingest/pkg/httpclient"
)

func newTestFetcher(timeout time.Duration) (*Fetcher, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return New(httpclient.NewClient(httpclient.CloudflareClient, 0), timeout, zap.New(core)), logs
}

func TestFetch_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>Hello</body></html>"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(time.Second)

	assert.Equal(t, "<html><body>Hello</body></html>", f.Fetch(context.Background(), server.URL))
}

func TestFetch_HTTPErrorReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	f, logs := newTestFetcher(time.Second)

	assert.Empty(t, f.Fetch(context.Background(), server.URL))
	warnings := logs.FilterLevelExact(zap.WarnLevel).All()
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, server.URL, warnings[0].ContextMap()["url"])
	}
}

func TestFetch_TimeoutReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.Write([]byte("too late"))
	}))
	defer server.Close()

	f, logs := newTestFetcher(50 * time.Millisecond)

	assert.Empty(t, f.Fetch(context.Background(), server.URL))
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestFetch_UnreachableHostReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f, _ := newTestFetcher(time.Second)

	assert.Empty(t, f.Fetch(context.Background(), url))
}

func TestFetch_InvalidURLReturnsEmpty(t *testing.T) {
	f, _ := newTestFetcher(time.Second)

	assert.Empty(t, f.Fetch(context.Background(), "://bad"))
}
