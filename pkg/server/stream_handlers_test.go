package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iptv-redirect/iptv-redirect/pkg/config"
	"github.com/iptv-redirect/iptv-redirect/pkg/store"
)

func streamFixture(upstreamURL string) *store.Data {
	return &store.Data{
		Links: []store.Link{
			{ID: 1, Name: "News One", Original: upstreamURL, Converted: "/stream/news/1", Category: "news"},
			{ID: 7, Name: "Broken", Original: "", Converted: "/stream/news/7", Category: "news"},
		},
		Categories: []string{"news"},
	}
}

func TestStreamHandler_proxySegment(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp2t")
		w.Write([]byte("segment-bytes"))
	}))
	defer upstream.Close()

	st := &fakeStore{data: streamFixture(upstream.URL + "/seg.ts")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "segment-bytes" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "video/mp2t" {
		t.Errorf("Expected upstream content type, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard CORS origin, got %q", got)
	}
	if got := w.Header().Get("X-Channel-Name"); got != "News+One" {
		t.Errorf("Expected escaped channel name, got %q", got)
	}
	if got := w.Header().Get("X-Channel-Category"); got != "news" {
		t.Errorf("Expected channel category header, got %q", got)
	}
}

func TestStreamHandler_proxyRewritesPlaylist(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte("#EXTM3U\n#EXTINF:10.0,\nseg001.ts\n/abs/seg002.ts\n"))
	}))
	defer upstream.Close()

	st := &fakeStore{data: streamFixture(upstream.URL + "/live/index.m3u8")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	if !strings.Contains(body, upstream.URL+"/live/seg001.ts") {
		t.Errorf("Relative segment not anchored to playlist directory:\n%s", body)
	}
	if !strings.Contains(body, upstream.URL+"/abs/seg002.ts") {
		t.Errorf("Rooted segment not anchored to origin:\n%s", body)
	}
}

func TestStreamHandler_followsUpstreamRedirects(t *testing.T) {
	mux := http.NewServeMux()
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final.ts", http.StatusFound)
	})
	mux.HandleFunc("/final.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("after-redirect"))
	})

	st := &fakeStore{data: streamFixture(upstream.URL + "/start")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != "after-redirect" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

func TestStreamHandler_redirectMode(t *testing.T) {
	cfg := testConfig()
	cfg.StreamMode = config.ModeRedirect

	st := &fakeStore{data: streamFixture("http://upstream/live.m3u8")}
	_, router := newTestServer(cfg, st)

	w := performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected 307, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "http://upstream/live.m3u8" {
		t.Errorf("Unexpected Location %q", got)
	}
}

func TestStreamHandler_jsonMode(t *testing.T) {
	cfg := testConfig()
	cfg.StreamMode = config.ModeJSON

	st := &fakeStore{data: streamFixture("http://upstream/live.m3u8")}
	_, router := newTestServer(cfg, st)

	w := performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["url"] != "http://upstream/live.m3u8" {
		t.Errorf("Unexpected url %v", body["url"])
	}
}

func TestStreamHandler_invalidID(t *testing.T) {
	st := &fakeStore{data: streamFixture("http://upstream/live.m3u8")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/stream/news/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestStreamHandler_notFound(t *testing.T) {
	st := &fakeStore{data: streamFixture("http://upstream/live.m3u8")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/stream/news/99", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["error"] != "Link with ID 99 not found or invalid." {
		t.Errorf("Unexpected error message %v", body["error"])
	}
}

func TestStreamHandler_categoryMismatch(t *testing.T) {
	st := &fakeStore{data: streamFixture("http://upstream/live.m3u8")}
	_, router := newTestServer(testConfig(), st)

	// Id 1 exists, but under news.
	w := performRequest(router, "GET", "/stream/sports/1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if err, _ := body["error"].(string); !strings.Contains(err, "Category mismatch") {
		t.Errorf("Unexpected error message %v", body["error"])
	}
}

func TestStreamHandler_missingOriginal(t *testing.T) {
	st := &fakeStore{data: streamFixture("http://upstream/live.m3u8")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/stream/news/7", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["error"] != "Original URL not found" {
		t.Errorf("Unexpected error message %v", body["error"])
	}
}

func TestStreamHandler_upstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden by provider", http.StatusForbidden)
	}))
	defer upstream.Close()

	st := &fakeStore{data: streamFixture(upstream.URL + "/live.m3u8")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if details, _ := body["details"].(string); !strings.Contains(details, "forbidden by provider") {
		t.Errorf("Expected upstream body in details, got %v", body["details"])
	}
}

func TestProxyHandler(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp2t")
		w.Write([]byte("proxied"))
	}))
	defer upstream.Close()

	st := &fakeStore{data: streamFixture("http://unused")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/proxy?url="+upstream.URL+"/seg.ts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "proxied" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard CORS origin, got %q", got)
	}
}

func TestProxyHandler_missingURL(t *testing.T) {
	st := &fakeStore{data: streamFixture("http://unused")}
	_, router := newTestServer(testConfig(), st)

	w := performRequest(router, "GET", "/proxy", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1

	st := &fakeStore{data: streamFixture("http://upstream/live.m3u8")}
	cfg.StreamMode = config.ModeRedirect
	_, router := newTestServer(cfg, st)

	// Burst of 1: the first request passes, the second is rejected.
	w := performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected first request to pass, got %d", w.Code)
	}
	w = performRequest(router, "GET", "/stream/news/1", "")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 on second request, got %d", w.Code)
	}
}
