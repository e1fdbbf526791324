package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(FetcherConfig{UserAgent: "test-agent"})
}

func TestFetch_direct200(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected spoofed User-Agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept") != "*/*" {
			t.Errorf("Expected Accept */*, got %q", r.Header.Get("Accept"))
		}
		w.Write([]byte("payload"))
	}))
	defer upstream.Close()

	result, err := newTestFetcher().Fetch(context.Background(), upstream.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer result.Response.Body.Close()

	if result.Hops != 0 {
		t.Errorf("Expected 0 hops, got %d", result.Hops)
	}
	if result.FinalURL != upstream.URL {
		t.Errorf("Expected final URL %s, got %s", upstream.URL, result.FinalURL)
	}
}

func TestFetch_followsRedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		// Relative Location must resolve against the current URL.
		w.Header().Set("Location", "end")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("done"))
	})

	result, err := newTestFetcher().Fetch(context.Background(), upstream.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer result.Response.Body.Close()

	if result.Hops != 2 {
		t.Errorf("Expected 2 hops, got %d", result.Hops)
	}
	if result.FinalURL != upstream.URL+"/end" {
		t.Errorf("Expected final URL to be /end, got %s", result.FinalURL)
	}
}

func TestFetch_redirectCapAtFiveHops(t *testing.T) {
	mux := http.NewServeMux()
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	for i := 0; i < 5; i++ {
		next := fmt.Sprintf("/hop%d", i+1)
		mux.HandleFunc(fmt.Sprintf("/hop%d", i), func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, next, http.StatusTemporaryRedirect)
		})
	}
	mux.HandleFunc("/hop5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("done"))
	})

	result, err := newTestFetcher().Fetch(context.Background(), upstream.URL+"/hop0")
	if err != nil {
		t.Fatalf("Expected 5-hop chain to succeed, got %v", err)
	}
	result.Response.Body.Close()

	if result.Hops != 5 {
		t.Errorf("Expected 5 hops, got %d", result.Hops)
	}
}

func TestFetch_tooManyRedirects(t *testing.T) {
	var upstream *httptest.Server
	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, upstream.URL, http.StatusFound)
	}))
	defer upstream.Close()

	_, err := newTestFetcher().Fetch(context.Background(), upstream.URL)
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("Expected ErrTooManyRedirects, got %v", err)
	}
}

func TestFetch_redirectMissingLocation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer upstream.Close()

	_, err := newTestFetcher().Fetch(context.Background(), upstream.URL)
	if !errors.Is(err, ErrMissingLocation) {
		t.Errorf("Expected ErrMissingLocation, got %v", err)
	}
}

func TestFetch_upstreamErrorCarriesStatusAndBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("hotlinking forbidden"))
	}))
	defer upstream.Close()

	_, err := newTestFetcher().Fetch(context.Background(), upstream.URL)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstreamErr.Status != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", upstreamErr.Status)
	}
	if upstreamErr.Body != "hotlinking forbidden" {
		t.Errorf("Expected captured error body, got %q", upstreamErr.Body)
	}
}

func TestFetch_cancelledContext(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer upstream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestFetcher().Fetch(ctx, upstream.URL); err == nil {
		t.Error("Expected error on cancelled context")
	}
}

func TestNewFetcher_doesNotMutateCallerClient(t *testing.T) {
	shared := &http.Client{}

	f := NewFetcher(FetcherConfig{Client: shared})

	if shared.CheckRedirect != nil {
		t.Error("Expected caller-supplied client to keep its CheckRedirect")
	}
	if f.client == shared {
		t.Error("Expected fetcher to work on its own client copy")
	}
	if f.client.CheckRedirect == nil {
		t.Error("Expected fetcher copy to disable automatic redirects")
	}
}

func TestNewFetcher_defaults(t *testing.T) {
	f := NewFetcher(FetcherConfig{})
	if f.maxRedirects != 5 {
		t.Errorf("Expected default redirect cap of 5, got %d", f.maxRedirects)
	}
	if f.client.Timeout == 0 {
		t.Error("Expected a default timeout to be set")
	}
}
