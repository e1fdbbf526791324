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
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/iptv-redirect/iptv-redirect/pkg/store"
)

func (c *Config) getCategories(ctx *gin.Context) {
	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read categories"})
		return
	}

	ctx.JSON(http.StatusOK, data.Categories)
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (c *Config) createCategory(ctx *gin.Context) {
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read categories"})
		return
	}

	name := strings.TrimSpace(req.Name)
	for _, existing := range data.Categories {
		if strings.EqualFold(existing, name) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Category already exists"})
			return
		}
	}

	data.Categories = append(data.Categories, name)
	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"name": name})
}

type renameCategoryRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// renameCategory renames a category and cascades to every referencing
// link: category and converted path are rewritten. Renaming onto an
// existing category merges the two; colliding ids move to the merged
// category's next free slot.
func (c *Config) renameCategory(ctx *gin.Context) {
	var req renameCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.OldName == "" || req.NewName == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Old name and new name are required"})
		return
	}

	oldName := strings.TrimSpace(req.OldName)
	newName := strings.TrimSpace(req.NewName)
	if strings.EqualFold(oldName, newName) {
		ctx.JSON(http.StatusOK, gin.H{"message": "Names are identical, no changes made"})
		return
	}

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read categories"})
		return
	}

	oldIdx := -1
	newIdx := -1
	for i, name := range data.Categories {
		if strings.EqualFold(name, oldName) {
			oldIdx = i
		}
		if strings.EqualFold(name, newName) {
			newIdx = i
		}
	}
	if oldIdx == -1 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	if newIdx == -1 {
		data.Categories[oldIdx] = newName
	} else {
		// Merge into the existing category, dropping the old entry.
		data.Categories = append(data.Categories[:oldIdx], data.Categories[oldIdx+1:]...)
	}

	updated := cascadeCategory(data.Links, strings.ToLower(oldName), newName)

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rename category", "details": err.Error()})
		return
	}

	c.logger.Infof("renamed category %s to %s (%d links updated)", oldName, newName, updated)
	ctx.JSON(http.StatusOK, gin.H{
		"message":      "Category renamed successfully",
		"updatedLinks": updated,
	})
}

// deleteCategory removes a category from the set. Referencing links are
// not deleted; they fall back to the default category.
func (c *Config) deleteCategory(ctx *gin.Context) {
	name := strings.TrimSpace(ctx.Param("name"))

	data, err := c.store.Load(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read categories"})
		return
	}

	idx := -1
	for i, existing := range data.Categories {
		if strings.EqualFold(existing, name) {
			idx = i
			break
		}
	}
	if idx == -1 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	data.Categories = append(data.Categories[:idx], data.Categories[idx+1:]...)
	cascadeCategory(data.Links, strings.ToLower(name), store.DefaultCategory)

	if err := c.store.Save(ctx.Request.Context(), data); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// cascadeCategory moves every link in the from category into target and
// returns how many links were touched.
func cascadeCategory(links []store.Link, from, target string) int {
	updated := 0
	for i := range links {
		if links[i].Category != from {
			continue
		}
		moveLink(links, i, target)
		updated++
	}
	return updated
}
