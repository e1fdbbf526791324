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

// Package server exposes the HTTP API: the stream redirect/proxy
// endpoints and the link directory management routes.
package server

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iptv-redirect/iptv-redirect/pkg/config"
	"github.com/iptv-redirect/iptv-redirect/pkg/store"
	"github.com/iptv-redirect/iptv-redirect/pkg/stream"
)

// Config represents the server configuration.
type Config struct {
	*config.ProxyConfig

	store   store.Store
	fetcher *stream.Fetcher
	logger  *logrus.Logger
}

// NewServer initializes a new server configuration.
func NewServer(cfg *config.ProxyConfig, st store.Store, logger *logrus.Logger) *Config {
	fetcher := stream.NewFetcher(stream.FetcherConfig{
		MaxRedirects: cfg.MaxRedirects,
		Timeout:      cfg.FetchTimeout,
		UserAgent:    cfg.UserAgent,
	})

	return &Config{
		ProxyConfig: cfg,
		store:       st,
		fetcher:     fetcher,
		logger:      logger,
	}
}

// Serve runs the iptv-redirect API until the listener fails.
func (c *Config) Serve() error {
	router := gin.Default()
	router.Use(cors.Default())
	c.routes(router.Group("/"))

	c.logger.Infof("server is ready and listening on %s:%d (stream mode %s)",
		c.HostConfig.Hostname, c.HostConfig.Port, c.StreamMode)

	return router.Run(fmt.Sprintf("%s:%d", c.HostConfig.Hostname, c.HostConfig.Port))
}

func (c *Config) routes(r *gin.RouterGroup) {
	// Stream endpoints stay open: players don't do basic auth.
	streamGroup := r.Group("/")
	if c.RateLimitRPS > 0 {
		streamGroup.Use(rateLimitMiddleware(c.RateLimitRPS, c.logger))
	}
	streamGroup.GET("/stream/:category/:id", c.streamHandler)
	streamGroup.OPTIONS("/stream/:category/:id", c.preflightHandler)
	streamGroup.GET("/proxy", c.proxyHandler)
	streamGroup.OPTIONS("/proxy", c.preflightHandler)

	api := r.Group("/api", c.basicAuth())
	api.GET("/links", c.getLinks)
	api.POST("/links", c.createLink)
	api.DELETE("/links", c.deleteLinks)
	api.PATCH("/links/:category/:id", c.updateLinkCategory)
	api.DELETE("/links/:category/:id", c.deleteLink)
	api.POST("/links/replace", c.replaceInLinks)
	api.POST("/links/update-selected", c.updateSelectedLinks)
	api.POST("/import", c.importChannels)

	api.GET("/categories", c.getCategories)
	api.POST("/categories", c.createCategory)
	api.POST("/categories/rename", c.renameCategory)
	api.DELETE("/categories/:name", c.deleteCategory)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (c *Config) preflightHandler(ctx *gin.Context) {
	ctx.Header("Access-Control-Allow-Origin", "*")
	ctx.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	ctx.Header("Access-Control-Allow-Headers", "Content-Type, Range")
	ctx.Status(204)
}
