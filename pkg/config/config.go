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

// Package config provides configuration for the iptv-redirect service.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Stream response modes for GET /stream/:category/:id.
const (
	ModeProxy    = "proxy"
	ModeRedirect = "redirect"
	ModeJSON     = "json"
)

// Store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

var (
	// ErrInvalidPort is returned when the listen port is out of range.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrInvalidStreamMode is returned when the stream mode is unknown.
	ErrInvalidStreamMode = errors.New("stream mode must be proxy, redirect or json")
	// ErrInvalidBackend is returned when the store backend is unknown.
	ErrInvalidBackend = errors.New("store backend must be file or redis")
	// ErrRedisURLRequired is returned when the redis backend is selected without a URL.
	ErrRedisURLRequired = errors.New("redis URL is required for the redis backend")
	// ErrInvalidMaxRedirects is returned when the redirect cap is not positive.
	ErrInvalidMaxRedirects = errors.New("max redirects must be positive")
	// ErrInvalidFetchTimeout is returned when the fetch timeout is not positive.
	ErrInvalidFetchTimeout = errors.New("fetch timeout must be positive")
)

// CredentialString is a string that must not leak into logs.
type CredentialString string

// String returns the credential in clear text.
func (s CredentialString) String() string {
	return string(s)
}

// HostConfiguration holds the host binding options.
type HostConfiguration struct {
	Hostname string
	Port     int
}

// ProxyConfig holds the runtime configuration of the service.
type ProxyConfig struct {
	HostConfig *HostConfiguration

	// Basic auth credentials guarding the management API.
	User     CredentialString
	Password CredentialString

	// Link store backend selection.
	StoreBackend string
	DataDir      string
	RedisURL     string
	RedisKey     string

	// Behavior of the stream endpoint.
	StreamMode   string
	FetchTimeout time.Duration
	MaxRedirects int
	UserAgent    string

	LogLevel string

	// RateLimitRPS limits stream requests per client IP. Zero disables.
	RateLimitRPS float64
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// New builds a ProxyConfig from command-line flags, with environment
// variables providing the defaults. Call godotenv.Load before this to
// pick up a .env file.
func New() (*ProxyConfig, error) {
	cfg := &ProxyConfig{HostConfig: &HostConfiguration{}}

	var user, password string

	flag.StringVar(&cfg.HostConfig.Hostname, "hostname", envString("HOSTNAME", "0.0.0.0"), "hostname or IP to bind")
	flag.IntVar(&cfg.HostConfig.Port, "port", envInt("PORT", 8080), "port to listen on")
	flag.StringVar(&user, "user", envString("BASIC_AUTH_USER", ""), "basic auth user for the management API")
	flag.StringVar(&password, "password", envString("BASIC_AUTH_PASSWORD", ""), "basic auth password for the management API")
	flag.StringVar(&cfg.StoreBackend, "store", envString("STORE_BACKEND", BackendFile), "link store backend (file or redis)")
	flag.StringVar(&cfg.DataDir, "data-dir", envString("DATA_DIR", "data"), "directory holding links.json for the file backend")
	flag.StringVar(&cfg.RedisURL, "redis-url", envString("REDIS_URL", ""), "redis URL for the redis backend")
	flag.StringVar(&cfg.RedisKey, "redis-key", envString("REDIS_KEY", "iptv-redirect:links"), "redis key holding the link collection")
	flag.StringVar(&cfg.StreamMode, "stream-mode", envString("STREAM_MODE", ModeProxy), "stream response mode (proxy, redirect or json)")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", envDuration("FETCH_TIMEOUT", 30*time.Second), "timeout for upstream fetches")
	flag.IntVar(&cfg.MaxRedirects, "max-redirects", envInt("MAX_REDIRECTS", 5), "maximum upstream redirects to follow")
	flag.StringVar(&cfg.UserAgent, "user-agent", envString("USER_AGENT", defaultUserAgent), "User-Agent sent on upstream fetches")
	flag.StringVar(&cfg.LogLevel, "log-level", envString("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flag.Float64Var(&cfg.RateLimitRPS, "rate-limit", envFloat("RATE_LIMIT_RPS", 0), "stream requests per second per client IP (0 disables)")

	flag.Parse()

	cfg.User = CredentialString(user)
	cfg.Password = CredentialString(password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *ProxyConfig) Validate() error {
	if c.HostConfig.Port < 1 || c.HostConfig.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.HostConfig.Port)
	}

	switch c.StreamMode {
	case ModeProxy, ModeRedirect, ModeJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStreamMode, c.StreamMode)
	}

	switch c.StoreBackend {
	case BackendFile:
	case BackendRedis:
		if c.RedisURL == "" {
			return ErrRedisURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.StoreBackend)
	}

	if c.MaxRedirects < 1 {
		return ErrInvalidMaxRedirects
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}

	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
