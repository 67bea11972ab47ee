package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/auth"
	"github.com/emilythestrangee/git-forum/backend/internal/database/dbtest"
	"github.com/emilythestrangee/git-forum/backend/internal/middleware"
	"github.com/emilythestrangee/git-forum/backend/internal/models"
	"github.com/emilythestrangee/git-forum/backend/internal/n8n"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRescorer struct {
	mu  sync.Mutex
	ids []int
}

func (f *fakeRescorer) ScheduleRecompute(_ context.Context, postID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, postID)
	return nil
}

func (f *fakeRescorer) scheduled() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.ids...)
}

type fakeTools struct {
	diff    string
	lang    string
	message string
	review  n8n.Review
	err     error
}

func (f *fakeTools) GenerateCommitMessage(_ context.Context, _ string, diff string) (string, error) {
	f.diff = diff
	return f.message, f.err
}

func (f *fakeTools) ReviewCode(_ context.Context, _ string, diff, lang string) (n8n.Review, error) {
	f.diff, f.lang = diff, lang
	return f.review, f.err
}

type fakeGoogle struct {
	info *auth.GoogleUserInfo
}

func (f fakeGoogle) Verify(context.Context, string) (*auth.GoogleUserInfo, error) {
	if f.info == nil {
		return nil, auth.ErrInvalidGoogleToken
	}
	return f.info, nil
}

type testEnv struct {
	db       *gorm.DB
	tokens   *auth.Tokens
	rescorer *fakeRescorer
	tools    *fakeTools
	google   *fakeGoogle
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		db:       dbtest.NewSQLite(t),
		tokens:   auth.NewTokens("test-secret", time.Hour),
		rescorer: &fakeRescorer{},
		tools:    &fakeTools{},
		google:   &fakeGoogle{},
	}
	h := NewHandler(Deps{
		DB:       e.db,
		Rescorer: e.rescorer,
		Tokens:   e.tokens,
		Google:   e.google,
		Tools:    e.tools,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	r := gin.New()
	api := r.Group("/api", middleware.OptionalAuth(e.tokens))
	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.POST("/auth/google", h.Auth.GoogleLogin)
	api.GET("/posts", h.Post.GetPosts)
	api.GET("/posts/trending", h.Post.GetTrending)
	api.GET("/posts/:id", h.Post.GetPost)
	api.GET("/posts/:id/comments", h.Comment.GetComments)
	api.GET("/repos", h.Repo.GetRepos)
	api.GET("/repos/:id", h.Repo.GetRepo)
	api.GET("/repos/:id/commits", h.Repo.GetCommits)
	api.GET("/users/:id", h.User.GetUserProfile)
	api.GET("/users/:id/followers", h.User.GetFollowers)

	protected := api.Group("", middleware.AuthMiddleware(e.tokens))
	protected.GET("/me", h.Auth.GetMe)
	protected.POST("/posts", h.Post.CreatePost)
	protected.PUT("/posts/:id", h.Post.UpdatePost)
	protected.DELETE("/posts/:id", h.Post.DeletePost)
	protected.POST("/posts/:id/vote", h.Post.VotePost)
	protected.POST("/posts/:id/fork", h.Post.ForkPost)
	protected.POST("/posts/:id/comments", h.Comment.CreateComment)
	protected.PUT("/comments/:commentId", h.Comment.UpdateComment)
	protected.DELETE("/comments/:commentId", h.Comment.DeleteComment)
	protected.GET("/bookmarks", h.Bookmark.GetBookmarks)
	protected.POST("/posts/:id/bookmark", h.Bookmark.AddBookmark)
	protected.DELETE("/posts/:id/bookmark", h.Bookmark.RemoveBookmark)
	protected.GET("/notifications", h.Notification.GetNotifications)
	protected.GET("/notifications/unread-count", h.Notification.UnreadCount)
	protected.POST("/notifications/read-all", h.Notification.MarkAllRead)
	protected.POST("/notifications/:id/read", h.Notification.MarkRead)
	protected.POST("/repos", h.Repo.CreateRepo)
	protected.PUT("/repos/:id", h.Repo.UpdateRepo)
	protected.DELETE("/repos/:id", h.Repo.DeleteRepo)
	protected.POST("/repos/:id/commits", h.Repo.CreateCommit)
	protected.POST("/users/:id/follow", h.User.FollowUser)
	protected.POST("/tools/generate-commit", h.Tools.GenerateCommit)
	protected.POST("/tools/code-review", h.Tools.CodeReview)
	e.router = r

	return e
}

// do sends a JSON request, authenticated as user when it is non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := e.tokens.Issue(*user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) notifications(t *testing.T, recipientID int) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, e.db.Where("recipient_id = ?", recipientID).Order("id").Find(&out).Error)
	return out
}
