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
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iptv-redirect/iptv-redirect/pkg/m3u"
	"github.com/iptv-redirect/iptv-redirect/pkg/store"
)

func (c *Config) getLinks(ctx *gin.Context) {
	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		c.logger.WithError(err).Error("failed to load link store")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	ctx.JSON(http.StatusOK, data)
}

type createLinkRequest struct {
	Original string `json:"original"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (c *Config) createLink(ctx *gin.Context) {
	var req createLinkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Original == "" || req.Name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Original URL and name are required"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	category := normalizeCategoryName(req.Category)
	id := store.MaxID(data.Links, category) + 1

	link := store.Link{
		ID:        id,
		Name:      req.Name,
		Original:  req.Original,
		Converted: store.ConvertedPath(category, id),
		Category:  category,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data.Links = append(data.Links, link)
	registerCategory(data, category)

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		c.logger.WithError(err).Error("failed to save link store")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create link", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, link)
}

type deleteLinksRequest struct {
	IDs      []int  `json:"ids"`
	Category string `json:"category"`
}

// deleteLinks removes links in bulk. When a category is given only that
// category's ids are touched; without one, matching ids are removed from
// every category. The category set is left alone either way: categories
// exist independently of the links referencing them.
func (c *Config) deleteLinks(ctx *gin.Context) {
	var req deleteLinksRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.IDs == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "IDs must be an array"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	wanted := make(map[int]bool, len(req.IDs))
	for _, id := range req.IDs {
		wanted[id] = true
	}

	kept := make([]store.Link, 0, len(data.Links))
	for _, l := range data.Links {
		if wanted[l.ID] && (category == "" || l.Category == category) {
			continue
		}
		kept = append(kept, l)
	}
	deleted := len(data.Links) - len(kept)
	data.Links = kept

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete links", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Deleted %d links", deleted)})
}

type updateLinkRequest struct {
	Category string `json:"category"`
}

// updateLinkCategory moves one link into another category. The converted
// path is recomputed, and the id is reassigned when the target category
// already holds a link with the same id.
func (c *Config) updateLinkCategory(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req updateLinkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Category) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Category is required"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	idx := findLink(data.Links, ctx.Param("category"), id)
	if idx == -1 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	target := normalizeCategoryName(req.Category)
	moveLink(data.Links, idx, target)
	registerCategory(data, target)

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update link", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, data.Links[idx])
}

func (c *Config) deleteLink(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	idx := findLink(data.Links, ctx.Param("category"), id)
	if idx == -1 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	data.Links = append(data.Links[:idx], data.Links[idx+1:]...)

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete link", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

type replaceRequest struct {
	SearchText  string  `json:"searchText"`
	ReplaceText *string `json:"replaceText"`
}

// replaceInLinks performs find-and-replace across every stored upstream
// URL. Providers occasionally move hosts or rotate tokens; this fixes a
// whole directory in one call.
func (c *Config) replaceInLinks(ctx *gin.Context) {
	var req replaceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.SearchText == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Search text is required"})
		return
	}
	if req.ReplaceText == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Replace text is required"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	replaced := 0
	for i := range data.Links {
		if strings.Contains(data.Links[i].Original, req.SearchText) {
			data.Links[i].Original = strings.ReplaceAll(data.Links[i].Original, req.SearchText, *req.ReplaceText)
			replaced++
		}
	}

	if replaced == 0 {
		ctx.JSON(http.StatusOK, gin.H{
			"message":       "No links were updated - search text not found in any URLs",
			"replacedCount": 0,
		})
		return
	}

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace text in links", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Successfully replaced %q with %q in %d link(s)", req.SearchText, *req.ReplaceText, replaced),
		"replacedCount": replaced,
	})
}

type updateSelectedRequest struct {
	LinkIDs    []string `json:"linkIds"`
	M3UContent string   `json:"m3uContent"`
}

// updateSelectedLinks re-assigns upstream URLs to selected links from a
// pasted M3U, positionally: the Nth URL goes to the Nth selected link.
// Link identities arrive as "category-id" composites.
func (c *Config) updateSelectedLinks(ctx *gin.Context) {
	var req updateSelectedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.LinkIDs) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No links selected"})
		return
	}
	if req.M3UContent == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No M3U content provided"})
		return
	}

	urls := m3u.ExtractURLs(req.M3UContent)
	if len(urls) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid URLs found in M3U content"})
		return
	}
	if len(urls) != len(req.LinkIDs) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Number of URLs in M3U content does not match number of selected links",
			"details": gin.H{
				"selectedLinks": len(req.LinkIDs),
				"urlsFound":     len(urls),
			},
		})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	updated := 0
	for i, composite := range req.LinkIDs {
		category, id, ok := splitCompositeID(composite)
		if !ok {
			c.logger.Warnf("malformed composite link id %q", composite)
			continue
		}

		idx := findLink(data.Links, category, id)
		if idx == -1 {
			c.logger.Warnf("link %d in category %s not found", id, category)
			continue
		}

		data.Links[idx].Original = urls[i]
		updated++
	}

	if updated == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "No matching links found to update"})
		return
	}

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update links", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Successfully updated %d links", updated),
		"updatedCount": updated,
	})
}

type importRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

// importChannels imports an M3U playlist into one category, replacing
// whatever that category held before. Ids continue from the category's
// previous maximum so re-imports don't reuse recently freed ids.
func (c *Config) importChannels(ctx *gin.Context) {
	var content, category string

	if strings.Contains(ctx.ContentType(), "application/json") {
		var req importRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		content, category = req.Content, req.Category
	} else {
		content = ctx.PostForm("m3uContent")
		category = ctx.PostForm("category")
	}

	if content == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No content provided"})
		return
	}

	playlist, err := m3u.ParseReader(strings.NewReader(content))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse M3U content", "details": err.Error()})
		return
	}
	if len(playlist.Tracks) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid channels found in the content"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	category = normalizeCategoryName(category)
	nextID := store.MaxID(data.Links, category)

	kept := make([]store.Link, 0, len(data.Links)+len(playlist.Tracks))
	for _, l := range data.Links {
		if l.Category != category {
			kept = append(kept, l)
		}
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	for _, track := range playlist.Tracks {
		nextID++
		kept = append(kept, store.Link{
			ID:        nextID,
			Name:      track.Name,
			Original:  track.URI,
			Converted: store.ConvertedPath(category, nextID),
			Category:  category,
			CreatedAt: createdAt,
		})
	}
	data.Links = kept
	registerCategory(data, category)

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import channels", "details": err.Error()})
		return
	}

	c.logger.Infof("imported %d channels into category %s", len(playlist.Tracks), category)
	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(playlist.Tracks),
		"category": category,
	})
}

// findLink returns the index of the (category, id) link, or -1.
func findLink(links []store.Link, category string, id int) int {
	category = strings.ToLower(strings.TrimSpace(category))
	for i, l := range links {
		if l.ID == id && l.Category == category {
			return i
		}
	}
	return -1
}

// splitCompositeID parses "category-id" composites. The split happens at
// the last dash so category names containing dashes stay intact.
func splitCompositeID(composite string) (string, int, bool) {
	idx := strings.LastIndex(composite, "-")
	if idx <= 0 || idx == len(composite)-1 {
		return "", 0, false
	}
	id, err := strconv.Atoi(composite[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return composite[:idx], id, true
}

// moveLink re-homes links[i] into target, recomputing the converted path
// and reassigning the id when it collides inside the target category.
func moveLink(links []store.Link, i int, target string) {
	target = strings.ToLower(target)
	id := links[i].ID
	for j, other := range links {
		if j != i && other.Category == target && other.ID == id {
			id = store.MaxID(links, target) + 1
			break
		}
	}
	links[i].ID = id
	links[i].Category = target
	links[i].Converted = store.ConvertedPath(target, id)
}

func normalizeCategoryName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return store.DefaultCategory
	}
	return name
}

// registerCategory adds a category to the set if no case-insensitive
// match exists yet. The default category is implicit and never listed.
func registerCategory(data *store.Data, name string) {
	if name == store.DefaultCategory {
		return
	}
	for _, existing := range data.Categories {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	data.Categories = append(data.Categories, name)
}
