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

// Package store persists the link directory. Two backends exist: a JSON
// file on disk and a Redis key holding the same JSON document.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// DefaultCategory is assigned to links whose category is empty or whose
// category has been deleted.
const DefaultCategory = "uncategorized"

// Link maps a static (category, id) identity to an upstream stream URL.
// IDs are unique within a category only; the composite key is (category, id).
type Link struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Original  string `json:"original"`
	Converted string `json:"converted"`
	Category  string `json:"category"`
	CreatedAt string `json:"createdAt"`
}

// Data is the authoritative link collection. Categories live as their own
// set, independent of whether any link still references them.
type Data struct {
	Links      []Link   `json:"links"`
	Categories []string `json:"categories"`
}

// Store is the persistence boundary of the link directory. Load always
// returns a usable Data value, never nil.
type Store interface {
	Load(ctx context.Context) (*Data, error)
	Save(ctx context.Context, data *Data) error
}

// ConvertedPath returns the static stream path for a (category, id) pair.
func ConvertedPath(category string, id int) string {
	return fmt.Sprintf("/stream/%s/%d", strings.ToLower(category), id)
}

// MaxID returns the highest link id within a category, or 0 when the
// category holds no links.
func MaxID(links []Link, category string) int {
	category = strings.ToLower(category)
	max := 0
	for _, l := range links {
		if l.Category == category && l.ID > max {
			max = l.ID
		}
	}
	return max
}

// rawData mirrors the stored JSON document. The links value may arrive as
// a dense array or as a key-mapped object (the remote database stores
// sparse arrays that way), so it is decoded leniently here and normalized
// before anything else sees it.
type rawData struct {
	Links      jsoniter.RawMessage `json:"links"`
	Categories []string            `json:"categories"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeData parses a stored JSON document into normalized Data: links as
// an ordered slice with null entries dropped and categories lowercased.
func decodeData(payload []byte) (*Data, error) {
	var raw rawData
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse link data: %w", err)
	}

	data := &Data{
		Links:      []Link{},
		Categories: []string{},
	}
	if raw.Categories != nil {
		data.Categories = raw.Categories
	}

	if len(raw.Links) == 0 {
		return data, nil
	}

	var asArray []*Link
	if err := json.Unmarshal(raw.Links, &asArray); err == nil {
		for _, l := range asArray {
			if l == nil {
				continue
			}
			l.Category = normalizeCategory(l.Category)
			data.Links = append(data.Links, *l)
		}
		return data, nil
	}

	// Object shape: keys are arbitrary, values are links. Key order is not
	// meaningful, so order by (category, id) to keep the sequence stable.
	var asObject map[string]*Link
	if err := json.Unmarshal(raw.Links, &asObject); err != nil {
		return nil, fmt.Errorf("links are neither an array nor an object: %w", err)
	}
	for _, l := range asObject {
		if l == nil {
			continue
		}
		l.Category = normalizeCategory(l.Category)
		data.Links = append(data.Links, *l)
	}
	sortLinks(data.Links)

	return data, nil
}

func encodeData(data *Data) ([]byte, error) {
	if data.Links == nil {
		data.Links = []Link{}
	}
	if data.Categories == nil {
		data.Categories = []string{}
	}
	return json.MarshalIndent(data, "", "  ")
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return DefaultCategory
	}
	return category
}

func sortLinks(links []Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Category != links[j].Category {
			return links[i].Category < links[j].Category
		}
		return links[i].ID < links[j].ID
	})
}
