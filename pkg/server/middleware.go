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
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// basicAuth guards the management API with the single shared credential
// pair from the configuration. When no user is configured the API is
// open, which only makes sense for local single-user setups.
func (c *Config) basicAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c.User.String() == "" {
			return
		}

		user, password, ok := ctx.Request.BasicAuth()
		if !ok || user != c.User.String() || password != c.Password.String() {
			ctx.Header("WWW-Authenticate", `Basic realm="iptv-redirect"`)
			ctx.AbortWithStatus(http.StatusUnauthorized)
		}
	}
}

// limiterIdleTTL is how long a client IP can stay quiet before its
// limiter is dropped.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one rate.Limiter per client IP. Entries idle for
// longer than limiterIdleTTL are evicted on the next lookup, so the map
// doesn't grow without bound on public deployments.
type ipLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newIPLimiters(rps float64) *ipLimiters {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &ipLimiters{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	for other, c := range l.clients {
		if other != ip && now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(l.clients, other)
		}
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	return c.limiter
}

// rateLimitMiddleware limits stream requests per client IP.
func rateLimitMiddleware(rps float64, logger *logrus.Logger) gin.HandlerFunc {
	limiters := newIPLimiters(rps)

	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if !limiters.get(ip, time.Now()).Allow() {
			logger.Warnf("rate limit exceeded for %s", ip)
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		}
	}
}
