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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_redirect_stream_requests_total",
		Help: "Stream requests by outcome.",
	}, []string{"outcome"})

	playlistRewrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_redirect_playlist_rewrites_total",
		Help: "HLS playlists rewritten while proxying.",
	})

	upstreamRedirectHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptv_redirect_upstream_redirect_hops",
		Help:    "Redirect hops followed per upstream fetch.",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})
)

// Stream request outcomes.
const (
	outcomeOK               = "ok"
	outcomeInvalidID        = "invalid_id"
	outcomeNotFound         = "not_found"
	outcomeCategoryMismatch = "category_mismatch"
	outcomeUpstreamError    = "upstream_error"
	outcomeInternalError    = "internal_error"
)
