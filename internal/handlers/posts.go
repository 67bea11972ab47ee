package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

const (
	defaultTrendingLimit = 10
	maxTrendingLimit     = 50
)

var postOrderings = map[string]string{
	"-created_at":     "created_at DESC",
	"created_at":      "created_at ASC",
	"-trending_score": "trending_score DESC",
	"views":           "views ASC",
	"-views":          "views DESC",
}

type PostHandler struct {
	db *gorm.DB
	ev *engagement
}

func NewPostHandler(db *gorm.DB, ev *engagement) *PostHandler {
	return &PostHandler{db: db, ev: ev}
}

type userSummary struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func summarize(u models.User) userSummary {
	return userSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

type postResponse struct {
	ID            int         `json:"id"`
	Author        userSummary `json:"author"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	CodeSnippet   string      `json:"code_snippet,omitempty"`
	Language      string      `json:"language"`
	Tags          []string    `json:"tags"`
	Views         int         `json:"views"`
	ForkCount     int         `json:"fork_count"`
	ForkedFromID  *int        `json:"forked_from_id,omitempty"`
	IsSolved      bool        `json:"is_solved"`
	TrendingScore float64     `json:"trending_score"`
	LikesCount    int64       `json:"likes_count"`
	DislikesCount int64       `json:"dislikes_count"`
	CommentsCount int64       `json:"comments_count"`
	UserVote      string      `json:"user_vote,omitempty"`
	IsBookmarked  bool        `json:"is_bookmarked"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type postCounts struct {
	likes     map[int]int64
	dislikes  map[int]int64
	comments  map[int]int64
	userVotes map[int]string
	bookmarks map[int]bool
}

// loadCounts aggregates votes, comments and the viewer's state for posts in
// three grouped queries.
func (h *PostHandler) loadCounts(ctx context.Context, posts []models.Post, viewerID int) (postCounts, error) {
	counts := postCounts{
		likes:     map[int]int64{},
		dislikes:  map[int]int64{},
		comments:  map[int]int64{},
		userVotes: map[int]string{},
		bookmarks: map[int]bool{},
	}
	if len(posts) == 0 {
		return counts, nil
	}
	ids := lo.Map(posts, func(p models.Post, _ int) int { return p.ID })
	db := h.db.WithContext(ctx)

	var votes []struct {
		PostID   int
		VoteType string
		N        int64
	}
	if err := db.Model(&models.Vote{}).
		Select("post_id, vote_type, COUNT(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id, vote_type").
		Scan(&votes).Error; err != nil {
		return counts, err
	}
	for _, v := range votes {
		if v.VoteType == models.VoteLike {
			counts.likes[v.PostID] = v.N
		} else {
			counts.dislikes[v.PostID] = v.N
		}
	}

	var comments []struct {
		PostID int
		N      int64
	}
	if err := db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&comments).Error; err != nil {
		return counts, err
	}
	for _, cm := range comments {
		counts.comments[cm.PostID] = cm.N
	}

	if viewerID == 0 {
		return counts, nil
	}

	var mine []models.Vote
	if err := db.Where("user_id = ? AND post_id IN ?", viewerID, ids).Find(&mine).Error; err != nil {
		return counts, err
	}
	counts.userVotes = lo.Associate(mine, func(v models.Vote) (int, string) { return v.PostID, v.VoteType })

	var saved []int
	if err := db.Model(&models.Bookmark{}).Where("user_id = ? AND post_id IN ?", viewerID, ids).Pluck("post_id", &saved).Error; err != nil {
		return counts, err
	}
	counts.bookmarks = lo.Associate(saved, func(id int) (int, bool) { return id, true })

	return counts, nil
}

func (h *PostHandler) render(c *gin.Context, posts []models.Post) ([]postResponse, error) {
	viewerID, _ := extractUserID(c)
	counts, err := h.loadCounts(c.Request.Context(), posts, viewerID)
	if err != nil {
		return nil, err
	}

	return lo.Map(posts, func(p models.Post, _ int) postResponse {
		return postResponse{
			ID:            p.ID,
			Author:        summarize(p.Author),
			Title:         p.Title,
			Description:   p.Description,
			CodeSnippet:   p.CodeSnippet,
			Language:      p.Language,
			Tags:          splitTags(p.Tags),
			Views:         p.Views,
			ForkCount:     p.ForkCount,
			ForkedFromID:  p.ForkedFromID,
			IsSolved:      p.IsSolved,
			TrendingScore: p.TrendingScore,
			LikesCount:    counts.likes[p.ID],
			DislikesCount: counts.dislikes[p.ID],
			CommentsCount: counts.comments[p.ID],
			UserVote:      counts.userVotes[p.ID],
			IsBookmarked:  counts.bookmarks[p.ID],
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		}
	}), nil
}

func (h *PostHandler) renderOne(c *gin.Context, status int, post models.Post) {
	out, err := h.render(c, []models.Post{post})
	if err != nil {
		h.ev.logger.ErrorContext(c.Request.Context(), "failed to load post counts", "post_id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	c.JSON(status, out[0])
}

// GetPosts lists posts with paging, search and ordering.
func (h *PostHandler) GetPosts(c *gin.Context) {
	p := parsePage(c)
	query := h.db.WithContext(c.Request.Context()).Model(&models.Post{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(code_snippet) LIKE ?", like, like, like)
	}
	if lang := c.Query("language"); lang != "" {
		query = query.Where("language = ?", lang)
	}
	if author := c.Query("author"); author != "" {
		query = query.Where("author_id = ?", author)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	order, ok := postOrderings[c.Query("ordering")]
	if !ok {
		order = postOrderings["-created_at"]
	}

	var posts []models.Post
	if err := p.apply(query).Preload("Author").Order(order).Order("id DESC").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	results, err := h.render(c, posts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     total,
		"page":      p.Page,
		"page_size": p.PageSize,
		"results":   results,
	})
}

// GetTrending returns the highest scored posts.
func (h *PostHandler) GetTrending(c *gin.Context) {
	limit := defaultTrendingLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = min(n, maxTrendingLimit)
	}

	query := h.db.WithContext(c.Request.Context()).Preload("Author")
	if lang := c.Query("language"); lang != "" {
		query = query.Where("language = ?", lang)
	}

	var posts []models.Post
	if err := query.Order("trending_score DESC").Order("created_at DESC").Limit(limit).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trending posts"})
		return
	}

	results, err := h.render(c, posts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trending posts"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetPost returns a single post and counts the view.
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var post models.Post
	if err := db.Preload("Author").First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if err := db.Model(&post).UpdateColumn("views", gorm.Expr("views + 1")).Error; err == nil {
		post.Views++
	}

	h.renderOne(c, http.StatusOK, post)
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	authorID, ok := currentUser(c)
	if !ok {
		return
	}

	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.Post{
		AuthorID:    authorID,
		Title:       input.Title,
		Description: input.Description,
		CodeSnippet: input.CodeSnippet,
		Language:    lo.Ternary(input.Language == "", "text", input.Language),
		Tags:        joinTags(input.Tags),
	}

	db := h.db.WithContext(c.Request.Context())
	if err := db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	db.Preload("Author").First(&post, post.ID)
	h.renderOne(c, http.StatusCreated, post)
}

// UpdatePost updates an existing post (PROTECTED - requires ownership)
func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.UpdatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own posts"})
		return
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.CodeSnippet != nil {
		updates["code_snippet"] = *input.CodeSnippet
	}
	if input.Language != nil {
		updates["language"] = *input.Language
	}
	if input.Tags != nil {
		updates["tags"] = joinTags(input.Tags)
	}
	if input.IsSolved != nil {
		updates["is_solved"] = *input.IsSolved
	}

	if len(updates) > 0 {
		if err := db.Model(&post).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
			return
		}
	}

	db.Preload("Author").First(&post, post.ID)
	h.renderOne(c, http.StatusOK, post)
}

// DeletePost deletes a post with its votes, comments and bookmarks
// (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
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

	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own posts"})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Vote{}, &models.Comment{}, &models.Bookmark{}} {
			if err := tx.Where("post_id = ?", post.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// VotePost likes or dislikes a post. Repeating a vote removes it, the
// opposite vote replaces it.
func (h *PostHandler) VotePost(c *gin.Context) {
	voterID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vote_type must be like or dislike"})
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var (
		message string
		current *string
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.Vote
		err := tx.Where("user_id = ? AND post_id = ?", voterID, post.ID).First(&existing).Error
		switch {
		case err == nil && existing.VoteType == input.VoteType:
			message = "Vote removed"
			return tx.Delete(&existing).Error
		case err == nil:
			message = "Vote updated"
			current = &input.VoteType
			if err := tx.Model(&existing).Update("vote_type", input.VoteType).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			message = "Vote recorded"
			current = &input.VoteType
			if err := tx.Create(&models.Vote{UserID: voterID, PostID: post.ID, VoteType: input.VoteType}).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if input.VoteType == models.VoteLike {
			return h.ev.notify(ctx, tx, post.AuthorID, voterID, models.VerbLiked, postLink(post.ID))
		}
		return nil
	})
	if err != nil {
		h.ev.logger.ErrorContext(ctx, "failed to vote", "post_id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	h.ev.rescore(ctx, "vote", post.ID)

	var likes int64
	db.Model(&models.Vote{}).Where("post_id = ? AND vote_type = ?", post.ID, models.VoteLike).Count(&likes)

	c.JSON(http.StatusOK, gin.H{
		"message":     message,
		"vote_type":   current,
		"likes_count": likes,
	})
}

// ForkPost copies a post under the caller's name.
func (h *PostHandler) ForkPost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	var original models.Post
	if err := db.First(&original, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	fork := models.Post{
		AuthorID:     userID,
		Title:        original.Title,
		Description:  original.Description,
		CodeSnippet:  original.CodeSnippet,
		Language:     original.Language,
		Tags:         original.Tags,
		ForkedFromID: &original.ID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&fork).Error; err != nil {
			return err
		}
		if err := tx.Model(&original).UpdateColumn("fork_count", gorm.Expr("fork_count + 1")).Error; err != nil {
			return err
		}
		return h.ev.notify(ctx, tx, original.AuthorID, userID, models.VerbForked, postLink(fork.ID))
	})
	if err != nil {
		h.ev.logger.ErrorContext(ctx, "failed to fork post", "post_id", original.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fork post"})
		return
	}

	h.ev.rescore(ctx, "fork", original.ID)

	db.Preload("Author").First(&fork, fork.ID)
	h.renderOne(c, http.StatusCreated, fork)
}

// GetUserPosts returns all posts by a specific user
func (h *PostHandler) GetUserPosts(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var posts []models.Post
	if err := h.db.WithContext(c.Request.Context()).Preload("Author").Where("author_id = ?", userID).Order("created_at desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user posts"})
		return
	}

	results, err := h.render(c, posts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user posts"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func splitTags(raw string) []string {
	tags := lo.Map(strings.Split(raw, ","), func(t string, _ int) string {
		return strings.ToLower(strings.TrimSpace(t))
	})
	return lo.Uniq(lo.Filter(tags, func(t string, _ int) bool { return t != "" }))
}

func joinTags(tags []string) string {
	return strings.Join(splitTags(strings.Join(tags, ",")), ",")
}
