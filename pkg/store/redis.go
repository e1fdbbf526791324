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

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps the whole link collection as one JSON document under a
// single key, the same shape the file backend writes. This is the remote
// counterpart of FileStore for deployments without a writable disk.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *logrus.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(url, key string, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	logger.Infof("redis link store initialized (key %s)", key)
	return &RedisStore{
		client: client,
		key:    key,
		logger: logger,
	}, nil
}

// Load reads and normalizes the link collection. A missing key reads as
// an empty collection.
func (s *RedisStore) Load(ctx context.Context) (*Data, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		s.logger.Debugf("redis key %s not set, starting empty", s.key)
		return &Data{Links: []Link{}, Categories: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return decodeData(payload)
}

// Save overwrites the stored collection. No TTL: the directory is the
// source of truth, not a cache.
func (s *RedisStore) Save(ctx context.Context, data *Data) error {
	payload, err := encodeData(data)
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}

	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	s.logger.Debugf("saved %d links to redis key %s", len(data.Links), s.key)
	return nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
