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
	"net/url"
	"regexp"
	"strings"
)

// DefaultPlaylistContentType is used when an upstream playlist response
// carries no Content-Type of its own.
const DefaultPlaylistContentType = "application/vnd.apple.mpegurl"

// hlsContentTypes are the MIME indicators that trigger playlist rewriting.
var hlsContentTypes = []string{
	"application/vnd.apple.mpegurl",
	"audio/mpegurl",
	"application/x-mpegurl",
}

var uriAttrRegExp = regexp.MustCompile(`URI="([^"]*)"`)

// IsPlaylist reports whether an upstream response should be treated as an
// HLS playlist: either the content type carries an HLS MIME indicator, or
// the type is absent and the URL path ends in .m3u8.
func IsPlaylist(contentType, rawURL string) bool {
	ct := strings.ToLower(contentType)
	for _, indicator := range hlsContentTypes {
		if strings.Contains(ct, indicator) {
			return true
		}
	}
	if contentType == "" {
		if u, err := url.Parse(rawURL); err == nil {
			return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
		}
	}
	return false
}

// Rewrite absolutizes every relative reference in an HLS playlist.
//
// A client fetching this playlist through the proxy resolves relative
// segment and key URIs against the proxy's URL, not the upstream's, so
// every relative URI is rewritten to an absolute URL anchored at the
// playlist's own directory. References that are already absolute pass
// through untouched, as does any line that fails to resolve: a single
// bad URI must not break the rest of the playlist.
func Rewrite(content, baseURL string) string {
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		lines[i] = rewriteLine(line, baseURL)
	}

	return strings.Join(lines, "\n")
}

func rewriteLine(line, baseURL string) string {
	if line == "" || line == "#EXT-X-KEY:NONE" {
		return line
	}

	if strings.HasPrefix(line, "#") {
		if !strings.Contains(line, `URI="`) {
			return line
		}
		return uriAttrRegExp.ReplaceAllStringFunc(line, func(attr string) string {
			uri := uriAttrRegExp.FindStringSubmatch(attr)[1]
			resolved, err := absolutize(uri, baseURL)
			if err != nil {
				return attr
			}
			return `URI="` + resolved + `"`
		})
	}

	if isAbsolute(line) {
		return line
	}
	resolved, err := absolutize(line, baseURL)
	if err != nil {
		return line
	}
	return resolved
}

// absolutize resolves ref against the playlist URL: root-relative refs
// anchor at the origin, everything else at the playlist's directory.
func absolutize(ref, baseURL string) (string, error) {
	if ref == "" || isAbsolute(ref) {
		return ref, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(ref, "/") {
		return base.Scheme + "://" + base.Host + ref, nil
	}

	return baseDir(base) + ref, nil
}

// baseDir returns the directory containing the playlist: the path up to
// and including the last slash.
func baseDir(base *url.URL) string {
	dir := base.Path
	if !strings.HasSuffix(dir, "/") {
		if idx := strings.LastIndex(dir, "/"); idx != -1 {
			dir = dir[:idx+1]
		} else {
			dir = "/"
		}
	}
	return base.Scheme + "://" + base.Host + dir
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
