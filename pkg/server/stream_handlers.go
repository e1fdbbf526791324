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

package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/iptv-redirect/iptv-redirect/pkg/config"
	"github.com/iptv-redirect/iptv-redirect/pkg/stream"
)

// streamHandler serves GET /stream/:category/:id. Depending on the
// configured mode the resolved upstream URL is proxied through, handed to
// the client as a 307, or returned as JSON.
func (c *Config) streamHandler(ctx *gin.Context) {
	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		c.logger.WithError(err).Error("failed to load link store")
		streamRequests.WithLabelValues(outcomeInternalError).Inc()
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links", "details": err.Error()})
		return
	}

	res, err := stream.Resolve(data, ctx.Param("category"), ctx.Param("id"))
	if err != nil {
		c.abortResolveError(ctx, err)
		return
	}

	switch c.StreamMode {
	case config.ModeRedirect:
		streamRequests.WithLabelValues(outcomeOK).Inc()
		ctx.Redirect(http.StatusTemporaryRedirect, res.TargetURL)
	case config.ModeJSON:
		streamRequests.WithLabelValues(outcomeOK).Inc()
		ctx.JSON(http.StatusOK, gin.H{"url": res.TargetURL})
	default:
		c.proxyStream(ctx, res)
	}
}

func (c *Config) abortResolveError(ctx *gin.Context, err error) {
	var (
		notFound *stream.NotFoundError
		mismatch *stream.CategoryMismatchError
	)

	switch {
	case errors.Is(err, stream.ErrInvalidID):
		streamRequests.WithLabelValues(outcomeInvalidID).Inc()
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
	case errors.As(err, &mismatch):
		streamRequests.WithLabelValues(outcomeCategoryMismatch).Inc()
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		streamRequests.WithLabelValues(outcomeNotFound).Inc()
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, stream.ErrNoOriginal):
		streamRequests.WithLabelValues(outcomeNotFound).Inc()
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Original URL not found"})
	default:
		streamRequests.WithLabelValues(outcomeInternalError).Inc()
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stream", "details": err.Error()})
	}
}

// proxyStream fetches the upstream resource and relays it, rewriting HLS
// playlists on the way so their relative references stay resolvable.
func (c *Config) proxyStream(ctx *gin.Context, res *stream.Resolution) {
	result, err := c.fetcher.Fetch(ctx.Request.Context(), res.TargetURL)
	if err != nil {
		c.abortFetchError(ctx, err)
		return
	}
	defer result.Response.Body.Close()

	upstreamRedirectHops.Observe(float64(result.Hops))
	if result.Hops > 0 {
		c.logger.Debugf("followed %d redirects for %s/%d", result.Hops, res.Link.Category, res.Link.ID)
	}

	ctx.Header("Access-Control-Allow-Origin", "*")
	// Header values must stay ASCII-safe; channel names often aren't.
	ctx.Header("X-Channel-Name", url.QueryEscape(res.Link.Name))
	ctx.Header("X-Channel-Category", url.QueryEscape(res.Link.Category))

	streamRequests.WithLabelValues(outcomeOK).Inc()
	c.relay(ctx, result)
}

func (c *Config) abortFetchError(ctx *gin.Context, err error) {
	var upstreamErr *stream.UpstreamError

	switch {
	case errors.As(err, &upstreamErr):
		streamRequests.WithLabelValues(outcomeUpstreamError).Inc()
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "details": upstreamErr.Body})
	case errors.Is(err, stream.ErrTooManyRedirects), errors.Is(err, stream.ErrMissingLocation):
		streamRequests.WithLabelValues(outcomeUpstreamError).Inc()
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch stream", "details": err.Error()})
	default:
		streamRequests.WithLabelValues(outcomeInternalError).Inc()
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stream", "details": err.Error()})
	}
}

// relay writes the upstream body to the client. Playlists are rewritten
// in memory; anything else is streamed through unchanged.
func (c *Config) relay(ctx *gin.Context, result *stream.FetchResult) {
	resp := result.Response
	contentType := resp.Header.Get("Content-Type")

	if stream.IsPlaylist(contentType, result.FinalURL) {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			c.logger.WithError(err).Warn("failed to read upstream playlist")
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read stream", "details": err.Error()})
			return
		}

		playlistRewrites.Inc()
		rewritten := stream.Rewrite(string(body), result.FinalURL)

		if contentType == "" {
			contentType = stream.DefaultPlaylistContentType
		}
		ctx.Data(http.StatusOK, contentType, []byte(rewritten))
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.Header("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		ctx.Header("Content-Length", cl)
	}
	ctx.Status(resp.StatusCode)

	// 128KB buffer keeps the number of writes down on segment bodies.
	// Copied directly: a client disconnect cancels the request context,
	// which aborts the upstream read, so no CloseNotify machinery is
	// needed and the writer doesn't have to support it.
	buf := make([]byte, 128*1024)
	io.CopyBuffer(ctx.Writer, resp.Body, buf) // nolint: errcheck
}

// proxyHandler serves GET /proxy?url=..., fetching an explicit URL on the
// caller's behalf. Used by browser players that cannot hit upstreams
// directly for CORS reasons.
func (c *Config) proxyHandler(ctx *gin.Context) {
	target := ctx.Query("url")
	if target == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing URL parameter"})
		return
	}

	result, err := c.fetcher.Fetch(ctx.Request.Context(), stream.NormalizeURL(target))
	if err != nil {
		c.abortFetchError(ctx, err)
		return
	}
	defer result.Response.Body.Close()

	ctx.Header("Access-Control-Allow-Origin", "*")
	c.relay(ctx, result)
}
