package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/auth"
	"github.com/emilythestrangee/git-forum/backend/internal/metrics"
	"github.com/emilythestrangee/git-forum/backend/internal/middleware"
	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

// Rescorer marks a post's trending score stale.
type Rescorer interface {
	ScheduleRecompute(ctx context.Context, postID int) error
}

// Deps carries everything the handlers share.
type Deps struct {
	DB       *gorm.DB
	Rescorer Rescorer
	Tokens   *auth.Tokens
	Google   auth.GoogleVerifier
	Tools    ToolsClient
	Logger   *slog.Logger
}

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Post         *PostHandler
	Comment      *CommentHandler
	User         *UserHandler
	Bookmark     *BookmarkHandler
	Notification *NotificationHandler
	Repo         *RepoHandler
	Tools        *ToolsHandler
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	ev := &engagement{db: d.DB, rescorer: d.Rescorer, logger: d.Logger.With("component", "handlers")}

	return &Handler{
		Auth:         NewAuthHandler(d.DB, d.Tokens, d.Google),
		Post:         NewPostHandler(d.DB, ev),
		Comment:      NewCommentHandler(d.DB, ev),
		User:         NewUserHandler(d.DB),
		Bookmark:     NewBookmarkHandler(d.DB),
		Notification: NewNotificationHandler(d.DB),
		Repo:         NewRepoHandler(d.DB),
		Tools:        NewToolsHandler(d.Tools, d.Logger),
	}
}

// engagement fans a change in likes, comments or forks out to the trending
// engine and the notification feed.
type engagement struct {
	db       *gorm.DB
	rescorer Rescorer
	logger   *slog.Logger
}

// rescore never fails the request; a lost trigger is healed by the sweep.
func (e *engagement) rescore(ctx context.Context, source string, postID int) {
	metrics.RecomputeTriggers.WithLabelValues(source).Inc()
	if e.rescorer == nil {
		return
	}
	if err := e.rescorer.ScheduleRecompute(ctx, postID); err != nil {
		e.logger.WarnContext(ctx, "failed to schedule trending recompute", "post_id", postID, "source", source, "error", err)
	}
}

// notify records a notification unless the actor is the recipient.
func (e *engagement) notify(ctx context.Context, tx *gorm.DB, recipientID, actorID int, verb, link string) error {
	if recipientID == actorID {
		return nil
	}
	n := models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Verb:        verb,
		TargetLink:  link,
	}
	return tx.WithContext(ctx).Create(&n).Error
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// currentUser writes 401 when the request carries no user.
func currentUser(c *gin.Context) (int, bool) {
	id, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return id, ok
}

// paramID parses a positive integer path parameter or writes 400.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func postLink(postID int) string {
	return "/posts/" + strconv.Itoa(postID)
}

func commentLink(postID, commentID int) string {
	return postLink(postID) + "#comment-" + strconv.Itoa(commentID)
}

type page struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func parsePage(c *gin.Context) page {
	p := page{Page: 1, PageSize: defaultPageSize}
	if n, err := strconv.Atoi(c.Query("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(c.Query("page_size")); err == nil && n > 0 {
		p.PageSize = min(n, maxPageSize)
	}
	return p
}

func (p page) apply(db *gorm.DB) *gorm.DB {
	return db.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}
