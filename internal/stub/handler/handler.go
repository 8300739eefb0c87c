package handler

import (
	"log/slog"
	"strconv"

	"github.com/cuongbtq/workspace-jobs/internal/stub/storage"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Storage *storage.Storage

	// Token is the bearer credential every /api request must carry
	Token string

	// PublicURL prefixes run_page_url values
	PublicURL string
}

// Handler serves the workspace, clusters and jobs endpoints
type Handler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	publicURL string
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		publicURL: deps.PublicURL,
	}
}

// WriteError aborts the request with a workspace error body
func WriteError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, workspace.ErrorResponse{
		ErrorCode: code,
		Message:   message,
	})
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
