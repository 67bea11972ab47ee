package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

type BookmarkHandler struct {
	db    *gorm.DB
	posts *PostHandler
}

func NewBookmarkHandler(db *gorm.DB) *BookmarkHandler {
	return &BookmarkHandler{db: db, posts: &PostHandler{db: db}}
}

// GetBookmarks lists the caller's saved posts, newest bookmark first.
func (h *BookmarkHandler) GetBookmarks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p := parsePage(c)

	db := h.db.WithContext(c.Request.Context())
	var total int64
	db.Model(&models.Bookmark{}).Where("user_id = ?", userID).Count(&total)

	var bookmarks []models.Bookmark
	if err := p.apply(db.Where("user_id = ?", userID)).
		Preload("Post.Author").
		Order("created_at desc").
		Find(&bookmarks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookmarks"})
		return
	}

	posts := make([]models.Post, 0, len(bookmarks))
	for _, b := range bookmarks {
		posts = append(posts, b.Post)
	}
	results, err := h.posts.render(c, posts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookmarks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     total,
		"page":      p.Page,
		"page_size": p.PageSize,
		"results":   results,
	})
}

// AddBookmark saves a post. Saving twice is a no-op.
func (h *BookmarkHandler) AddBookmark(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var existing models.Bookmark
	err := db.Where("user_id = ? AND post_id = ?", userID, post.ID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Already bookmarked"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to bookmark post"})
		return
	}

	if err := db.Create(&models.Bookmark{UserID: userID, PostID: post.ID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to bookmark post"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Post bookmarked"})
}

func (h *BookmarkHandler) RemoveBookmark(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Bookmark{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove bookmark"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed"})
}
