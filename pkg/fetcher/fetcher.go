// Package fetcher retrieves raw page markup for configured sources.
package fetcher

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"site-ingest/pkg/httpclient"
	"site-ingest/pkg/logging"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Fetcher downloads pages. It never returns an error: any transport failure, timeout or
// non-2xx response is logged and reported as empty markup.
type Fetcher struct {
	client  *httpclient.HTTPClient
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a fetcher. timeout bounds every single fetch; zero disables the bound.
func New(client *httpclient.HTTPClient, timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: timeout,
		logger:  logging.OrNop(logger),
	}
}

// Fetch returns the page body for url, or "" when the page could not be retrieved.
func (f *Fetcher) Fetch(ctx context.Context, url string) string {
	body, err := f.fetch(ctx, url)
	if err != nil {
		f.logger.Warn("fetcher: fetch failed, skipping source for this run",
			zap.String("url", url), zap.Error(err))
		return ""
	}
	return body
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return "", errors.Wrap(err, "request")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(err, "read response body")
	}

	f.logger.Debug("fetcher: fetched page", zap.String("url", url), zap.Int("bytes", len(body)))
	return string(body), nil
}

func drainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
