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

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

const linksFileName = "links.json"

// FileStore keeps the link collection in a single JSON file. A missing
// file reads as an empty collection. Writes go through a temp file and a
// rename so a crash mid-write never corrupts the data.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	logger *logrus.Logger
}

// NewFileStore creates the data directory if needed and returns a store
// backed by links.json inside it.
func NewFileStore(dataDir string, logger *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &FileStore{
		path:   filepath.Join(dataDir, linksFileName),
		logger: logger,
	}, nil
}

// Load reads and normalizes the link collection.
func (s *FileStore) Load(_ context.Context) (*Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debugf("links file not found at %s, starting empty", s.path)
			return &Data{Links: []Link{}, Categories: []string{}}, nil
		}
		return nil, fmt.Errorf("failed to read links file: %w", err)
	}

	return decodeData(payload)
}

// Save writes the whole collection back to disk.
func (s *FileStore) Save(_ context.Context, data *Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := encodeData(data)
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(s.path), uuid.NewV4().String()+".links.json.tmp")
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("failed to write links file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp) // nolint: errcheck
		return fmt.Errorf("failed to replace links file: %w", err)
	}

	s.logger.Debugf("saved %d links to %s", len(data.Links), s.path)
	return nil
}
