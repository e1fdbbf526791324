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

// Package stream resolves static links to upstream URLs, fetches them
// while following redirects manually, and rewrites HLS playlists so they
// stay playable through the proxy.
package stream

import (
	"strconv"
	"strings"

	"github.com/iptv-redirect/iptv-redirect/pkg/store"
)

// Resolution is the fetch plan for one inbound stream request.
type Resolution struct {
	// TargetURL is the absolute upstream URL, scheme included.
	TargetURL string
	// Link is the matched directory entry, kept for observability headers.
	Link store.Link
}

// Resolve maps a (category, rawID) request to a concrete upstream target.
// The id must parse as an integer and the matched link's category must
// equal the requested one case-insensitively; an id that exists only
// under another category reports a CategoryMismatchError so stale static
// links fail loudly instead of serving the wrong channel.
func Resolve(data *store.Data, category, rawID string) (*Resolution, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, ErrInvalidID
	}

	category = strings.ToLower(category)

	var mismatch string
	for _, l := range data.Links {
		if l.ID != id {
			continue
		}
		if strings.ToLower(l.Category) == category {
			if l.Original == "" {
				return nil, ErrNoOriginal
			}
			return &Resolution{
				TargetURL: NormalizeURL(l.Original),
				Link:      l,
			}, nil
		}
		if mismatch == "" {
			mismatch = l.Category
		}
	}

	if mismatch != "" {
		return nil, &CategoryMismatchError{Expected: mismatch, Requested: category}
	}
	return nil, &NotFoundError{ID: id}
}

// NormalizeURL prepends http:// to scheme-less URLs. Stored originals are
// sometimes pasted without a scheme.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "http://" + raw
}
