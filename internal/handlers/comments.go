package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

type CommentHandler struct {
	db *gorm.DB
	ev *engagement
}

func NewCommentHandler(db *gorm.DB, ev *engagement) *CommentHandler {
	return &CommentHandler{db: db, ev: ev}
}

type commentResponse struct {
	ID        int         `json:"id"`
	PostID    int         `json:"post_id"`
	ParentID  *int        `json:"parent_id"`
	Author    userSummary `json:"author"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func toCommentResponse(cm models.Comment) commentResponse {
	return commentResponse{
		ID:        cm.ID,
		PostID:    cm.PostID,
		ParentID:  cm.ParentID,
		Author:    summarize(cm.Author),
		Content:   cm.Content,
		CreatedAt: cm.CreatedAt,
		UpdatedAt: cm.UpdatedAt,
	}
}

// GetComments returns every comment of a post, oldest first.
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var count int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil || count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var comments []models.Comment
	if err := db.Where("post_id = ?", postID).Preload("Author").Order("created_at asc").Order("id asc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(comments, func(cm models.Comment, _ int) commentResponse {
		return toCommentResponse(cm)
	}))
}

// CreateComment adds a comment or a reply to a post.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	authorID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var parent models.Comment
	if input.ParentID != nil {
		if err := db.First(&parent, *input.ParentID).Error; err != nil || parent.PostID != post.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parent comment must belong to the same post"})
			return
		}
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: authorID,
		ParentID: input.ParentID,
		Content:  input.Content,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if input.ParentID != nil {
			return h.ev.notify(ctx, tx, parent.AuthorID, authorID, models.VerbReplied, commentLink(post.ID, comment.ID))
		}
		return h.ev.notify(ctx, tx, post.AuthorID, authorID, models.VerbCommented, commentLink(post.ID, comment.ID))
	})
	if err != nil {
		h.ev.logger.ErrorContext(ctx, "failed to create comment", "post_id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	h.ev.rescore(ctx, "comment", post.ID)

	db.Preload("Author").First(&comment, comment.ID)
	c.JSON(http.StatusCreated, toCommentResponse(comment))
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	authorID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}

	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var comment models.Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own comments"})
		return
	}

	if err := db.Model(&comment).Update("content", input.Content).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	db.Preload("Author").First(&comment, comment.ID)
	c.JSON(http.StatusOK, toCommentResponse(comment))
}

// DeleteComment deletes a comment and all replies below it (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	authorID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	var comment models.Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	var deleted int
	err := db.Transaction(func(tx *gorm.DB) error {
		ids, err := subtree(tx, comment.ID)
		if err != nil {
			return err
		}
		deleted = len(ids)
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
	if err != nil {
		h.ev.logger.ErrorContext(ctx, "failed to delete comment", "comment_id", comment.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	h.ev.rescore(ctx, "comment_delete", comment.PostID)

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully", "deleted": deleted})
}

// subtree returns rootID and the ids of every reply beneath it.
func subtree(tx *gorm.DB, rootID int) ([]int, error) {
	ids := []int{rootID}
	frontier := []int{rootID}
	for len(frontier) > 0 {
		var children []int
		if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}
