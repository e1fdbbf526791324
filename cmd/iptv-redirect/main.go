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

package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iptv-redirect/iptv-redirect/pkg/config"
	"github.com/iptv-redirect/iptv-redirect/pkg/server"
	"github.com/iptv-redirect/iptv-redirect/pkg/store"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// A .env file is optional; flags and real env vars win either way.
	godotenv.Load() // nolint: errcheck

	cfg, err := config.New()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to parse log level")
	}
	logrus.SetLevel(level)

	logger := logrus.StandardLogger()

	var st store.Store
	switch cfg.StoreBackend {
	case config.BackendRedis:
		st, err = store.NewRedisStore(cfg.RedisURL, cfg.RedisKey, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize redis store")
		}
	default:
		st, err = store.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize file store")
		}
	}

	srv := server.NewServer(cfg, st, logger)
	if err := srv.Serve(); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}
