package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/cuongbtq/workspace-jobs/internal/stub/storage"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
)

var importFormats = map[string]bool{"AUTO": true, "SOURCE": true, "RAW": true}

// Mkdirs handles POST /api/2.0/workspace/mkdirs
func (h *Handler) Mkdirs(c *gin.Context) {
	var req workspace.MkdirsRequest
	if err := c.ShouldBindJSON(&req); err != nil || !path.IsAbs(req.Path) {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "path must be absolute")
		return
	}

	h.storage.Mkdirs(req.Path)
	c.JSON(http.StatusOK, gin.H{})
}

// Import handles POST /api/2.0/workspace/import
func (h *Handler) Import(c *gin.Context) {
	var req workspace.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "Invalid request body")
		return
	}
	if !path.IsAbs(req.Path) {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "path must be absolute")
		return
	}
	if req.Format != "" && !importFormats[req.Format] {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter,
			fmt.Sprintf("unsupported format %s", req.Format))
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "content must be base64 encoded")
		return
	}

	obj, err := h.storage.Import(req.Path, content, req.Overwrite)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeAlreadyExists,
			fmt.Sprintf("Path (%s) already exists.", req.Path))
		return
	case errors.Is(err, storage.ErrNotFound):
		WriteError(c, http.StatusNotFound, workspace.ErrorCodeNotFound,
			fmt.Sprintf("The parent folder (%s) does not exist.", path.Dir(req.Path)))
		return
	case err != nil:
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	h.logger.Info("Object imported",
		slog.String("path", obj.Path),
		slog.Int("bytes", len(obj.Content)),
	)

	c.JSON(http.StatusOK, gin.H{})
}

// GetStatus handles GET /api/2.0/workspace/get-status
func (h *Handler) GetStatus(c *gin.Context) {
	p := c.Query("path")
	info, err := h.storage.Stat(p)
	if err != nil {
		WriteError(c, http.StatusNotFound, workspace.ErrorCodeNotFound,
			fmt.Sprintf("Path (%s) doesn't exist.", p))
		return
	}

	c.JSON(http.StatusOK, info)
}
