package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/git-forum/backend/internal/n8n"
)

// ToolsClient is implemented by *n8n.Client.
type ToolsClient interface {
	GenerateCommitMessage(ctx context.Context, filename, diff string) (string, error)
	ReviewCode(ctx context.Context, filename, diff, lang string) (n8n.Review, error)
}

type ToolsHandler struct {
	client ToolsClient
	logger *slog.Logger
}

func NewToolsHandler(client ToolsClient, logger *slog.Logger) *ToolsHandler {
	return &ToolsHandler{client: client, logger: logger.With("component", "tools")}
}

type diffRequest struct {
	Filename string `json:"filename"`
	Diff     string `json:"diff" binding:"required"`
	Lang     string `json:"lang"`
}

func (h *ToolsHandler) GenerateCommit(c *gin.Context) {
	var input diffRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.client.GenerateCommitMessage(c.Request.Context(), input.Filename, n8n.TruncateDiff(input.Diff, n8n.MaxDiffLines))
	if err != nil {
		h.fail(c, "commit generation failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *ToolsHandler) CodeReview(c *gin.Context) {
	var input diffRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.client.ReviewCode(c.Request.Context(), input.Filename, n8n.TruncateDiff(input.Diff, n8n.MaxDiffLines), input.Lang)
	if err != nil {
		h.fail(c, "code review failed", err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *ToolsHandler) fail(c *gin.Context, msg string, err error) {
	h.logger.ErrorContext(c.Request.Context(), msg, "error", err)
	if errors.Is(err, n8n.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI tools are not configured"})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
