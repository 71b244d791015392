package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/velichkin/newsgrab/app/sources"
)

const (
	maxFetchRetries = 2
	retryBackoff    = 500 * time.Millisecond
)

// Fetcher retrieves a source's raw listing content. Transient failures
// (connection errors, 5xx) are retried up to maxFetchRetries with a short
// backoff; 4xx responses are permanent for the attempt and never retried.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

func (f *Fetcher) Run(ctx context.Context, source *sources.Source) ([]byte, error) {
	target := source.Homepage
	if source.Scrape.Kind == sources.KindFeed {
		target = source.Scrape.FeedURL
	}

	timeout := time.Duration(source.Settings.Timeout) * time.Second

	var lastErr *FetchError
	for attempt := 0; attempt <= maxFetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		data, fetchErr := f.fetch(ctx, target, timeout)
		if fetchErr == nil {
			return data, nil
		}

		lastErr = fetchErr
		if !retryable(fetchErr) {
			return nil, fetchErr
		}
	}

	return nil, lastErr
}

func (f *Fetcher) fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, *FetchError) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchConnectionFailed, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: FetchHTTPStatus, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return data, nil
}

func classifyTransportError(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FetchTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: FetchTimeout, Err: err}
	}

	return &FetchError{Kind: FetchConnectionFailed, Err: err}
}

func retryable(err *FetchError) bool {
	switch err.Kind {
	case FetchConnectionFailed, FetchTimeout:
		return true
	case FetchHTTPStatus:
		return err.StatusCode >= 500
	}
	return false
}
