package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/velichkin/newsgrab/app/sources"
)

func fetchSource(url string) *sources.Source {
	return &sources.Source{
		Name:     "example",
		Homepage: url,
		Scrape:   sources.Rule{Kind: sources.KindHTML, Region: "main", Item: "article"},
		Settings: sources.Settings{Timeout: 5},
	}
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Newsgrab Test/1.0" {
			t.Errorf("Expected custom user agent, got: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte("<html>listing</html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "Newsgrab Test/1.0")
	data, err := fetcher.Run(context.Background(), fetchSource(server.URL))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != "<html>listing</html>" {
		t.Errorf("Expected response body, got: %s", string(data))
	}
}

func TestFetchNoRetryOn4xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "test")
	_, err := fetcher.Run(context.Background(), fetchSource(server.URL))

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %v", err)
	}
	if fetchErr.Kind != FetchHTTPStatus || fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected http_status 404, got: %s %d", fetchErr.Kind, fetchErr.StatusCode)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("Expected exactly 1 attempt for 4xx, got: %d", got)
	}
}

func TestFetchRetriesOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "test")
	data, err := fetcher.Run(context.Background(), fetchSource(server.URL))
	if err != nil {
		t.Fatalf("Expected retries to recover, got: %v", err)
	}
	if string(data) != "recovered" {
		t.Errorf("Expected 'recovered', got: %s", string(data))
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 3 attempts, got: %d", got)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "test")
	_, err := fetcher.Run(context.Background(), fetchSource(server.URL))

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %v", err)
	}
	if fetchErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got: %d", fetchErr.StatusCode)
	}
	// Initial attempt plus maxFetchRetries
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 3 attempts, got: %d", got)
	}
}

func TestFetchConnectionFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher := NewFetcher(&http.Client{}, "test")
	_, err := fetcher.Run(context.Background(), fetchSource(url))

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %v", err)
	}
	if fetchErr.Kind != FetchConnectionFailed {
		t.Errorf("Expected connection_failed, got: %s", fetchErr.Kind)
	}
}

func TestFetchFeedKindUsesFeedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rss.xml" {
			t.Errorf("Expected request to /rss.xml, got: %s", r.URL.Path)
		}
		w.Write([]byte("<rss/>"))
	}))
	defer server.Close()

	source := fetchSource(server.URL)
	source.Scrape.Kind = sources.KindFeed
	source.Scrape.FeedURL = server.URL + "/rss.xml"

	fetcher := NewFetcher(server.Client(), "test")
	if _, err := fetcher.Run(context.Background(), source); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}
