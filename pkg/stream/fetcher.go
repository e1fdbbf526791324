/*
 * Iptv-Redirect is a web service for managing a personal directory of IPTV
 * channel links and for serving or proxying the underlying streams.
 * Copyright (C) 2025
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const errorBodyLimit = 4 * 1024

// FetcherConfig drives a Fetcher. Zero values are replaced with defaults
// by NewFetcher.
type FetcherConfig struct {
	// MaxRedirects caps the manual redirect chain. Default 5.
	MaxRedirects int
	// Timeout bounds the whole fetch, redirect hops included. Default 30s.
	Timeout time.Duration
	// UserAgent is sent on every upstream request. Some origins refuse
	// requests without a browser- or player-like agent.
	UserAgent string
	// Client may be nil to build one from Timeout.
	Client *http.Client
}

// Fetcher retrieves upstream resources, following HTTP redirects in
// application code rather than in the client so each hop can be observed
// and capped. Referer and Origin are deliberately never sent: native
// players don't send them and some origin servers require their absence.
type Fetcher struct {
	client       *http.Client
	maxRedirects int
	userAgent    string
}

// FetchResult is the final upstream response plus the number of redirect
// hops absorbed on the way, for diagnostics. FinalURL is where the
// content actually came from; playlist rewriting anchors on it.
type FetchResult struct {
	Response *http.Response
	FinalURL string
	Hops     int
}

// NewFetcher builds a Fetcher from cfg.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	var client http.Client
	if cfg.Client != nil {
		// Shallow copy so a caller-supplied client keeps its own
		// CheckRedirect.
		client = *cfg.Client
	} else {
		client = http.Client{Timeout: cfg.Timeout}
	}
	// Redirects are followed manually below.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Fetcher{
		client:       &client,
		maxRedirects: cfg.MaxRedirects,
		userAgent:    cfg.UserAgent,
	}
}

// Fetch GETs target, following up to MaxRedirects redirects. The caller
// owns the response body. ctx cancellation aborts the fetch mid-chain and
// mid-body, so a disconnected client doesn't leak an upstream connection.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*FetchResult, error) {
	current := target

	for hops := 0; ; hops++ {
		if hops > f.maxRedirects {
			return nil, fmt.Errorf("%w: gave up after %d hops", ErrTooManyRedirects, f.maxRedirects)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build upstream request: %w", err)
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}
		req.Header.Set("Accept", "*/*")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("upstream fetch failed: %w", err)
		}

		if isRedirect(resp.StatusCode) {
			next, err := redirectTarget(resp)
			drain(resp)
			if err != nil {
				return nil, err
			}
			current = next
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			upErr := &UpstreamError{Status: resp.StatusCode}
			// Best effort: the error body often names the reason.
			if body, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit)); err == nil {
				upErr.Body = string(body)
			}
			resp.Body.Close()
			return nil, upErr
		}

		return &FetchResult{Response: resp, FinalURL: current, Hops: hops}, nil
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// redirectTarget resolves the Location header against the redirecting
// URL, since upstreams frequently send relative locations.
func redirectTarget(resp *http.Response) (string, error) {
	location := resp.Header.Get("Location")
	if location == "" {
		return "", ErrMissingLocation
	}

	next, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid Location header %q: %w", location, err)
	}

	return resp.Request.URL.ResolveReference(next).String(), nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit)) // nolint: errcheck
	resp.Body.Close()
}
