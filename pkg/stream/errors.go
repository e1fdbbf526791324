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
	"errors"
	"fmt"
)

var (
	// ErrInvalidID is returned when the requested id is not an integer.
	ErrInvalidID = errors.New("invalid ID format")
	// ErrNoOriginal is returned when the link has no upstream URL.
	ErrNoOriginal = errors.New("original URL not found")
	// ErrMissingLocation is returned when a redirect carries no Location header.
	ErrMissingLocation = errors.New("redirect response missing Location header")
	// ErrTooManyRedirects is returned when the redirect chain exceeds the cap.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// NotFoundError is returned when no link carries the requested id.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Link with ID %d not found or invalid.", e.ID)
}

// CategoryMismatchError signals a stale static link: the id exists but
// under a different category than the one requested.
type CategoryMismatchError struct {
	Expected  string
	Requested string
}

func (e *CategoryMismatchError) Error() string {
	return fmt.Sprintf("Category mismatch. Expected %s, got %s", e.Expected, e.Requested)
}

// UpstreamError carries a non-2xx upstream status and a best-effort
// capture of the upstream error body.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}
