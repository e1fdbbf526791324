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

// Package m3u parses M3U playlists pasted or uploaded for import.
package m3u

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jamesnetherton/m3u"
)

var tagsRegExp = regexp.MustCompile(`([a-zA-Z0-9-]+?)="([^"]*)"`)

// ParseReader scans an M3U playlist from r. Unlike a strict parser it
// tolerates a missing #EXTM3U header and URL lines without a preceding
// #EXTINF, because people paste bare URL lists into the import form.
// Tracks without a URI are dropped.
func ParseReader(r io.Reader) (m3u.Playlist, error) {
	playlist := m3u.Playlist{}
	var pending *m3u.Track

	scanner := bufio.NewScanner(r)
	// Provider playlists carry very long attribute lines.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXTINF"):
			pending = parseExtinf(line)
		case strings.HasPrefix(line, "#"):
			continue
		default:
			track := pending
			if track == nil {
				track = &m3u.Track{Name: "Unknown Channel", Length: -1}
			}
			track.URI = line
			playlist.Tracks = append(playlist.Tracks, *track)
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return m3u.Playlist{}, err
	}

	return playlist, nil
}

// parseExtinf extracts length, attribute tags and the display name from a
// #EXTINF line. The name is everything after the last comma; a missing or
// unparsable length reads as -1 (live stream).
func parseExtinf(line string) *m3u.Track {
	body := strings.TrimPrefix(line, "#EXTINF:")

	track := &m3u.Track{Name: "Unknown Channel", Length: -1}

	if idx := strings.LastIndex(body, ","); idx != -1 {
		if name := strings.TrimSpace(body[idx+1:]); name != "" {
			track.Name = name
		}
		body = body[:idx]
	}

	if fields := strings.Fields(body); len(fields) > 0 {
		if length, err := strconv.Atoi(fields[0]); err == nil {
			track.Length = length
		}
	}

	for _, m := range tagsRegExp.FindAllStringSubmatch(body, -1) {
		track.Tags = append(track.Tags, m3u.Tag{Name: m[1], Value: m[2]})
	}

	return track
}

// ExtractURLs returns the absolute http(s) URL lines of an M3U document,
// in order. Used when re-assigning stream URLs to selected links.
func ExtractURLs(content string) []string {
	var urls []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	return urls
}
