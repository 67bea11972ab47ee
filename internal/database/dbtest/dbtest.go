// Package dbtest opens throwaway migrated databases and seeds rows for tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/git-forum/backend/internal/database"
	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

// NewSQLite returns a migrated in-memory database private to t.
func NewSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		Password:     "x",
		AuthProvider: "email",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreatePost inserts a post by author created at createdAt.
func CreatePost(t *testing.T, db *gorm.DB, authorID int, title string, createdAt time.Time) models.Post {
	t.Helper()

	post := models.Post{
		AuthorID:    authorID,
		Title:       title,
		Description: "body of " + title,
		Language:    "go",
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func Like(t *testing.T, db *gorm.DB, userID, postID int) {
	t.Helper()
	require.NoError(t, db.Create(&models.Vote{UserID: userID, PostID: postID, VoteType: models.VoteLike}).Error)
}

func Dislike(t *testing.T, db *gorm.DB, userID, postID int) {
	t.Helper()
	require.NoError(t, db.Create(&models.Vote{UserID: userID, PostID: postID, VoteType: models.VoteDislike}).Error)
}

func Comment(t *testing.T, db *gorm.DB, authorID, postID int, parentID *int) models.Comment {
	t.Helper()

	comment := models.Comment{PostID: postID, AuthorID: authorID, ParentID: parentID, Content: "nice"}
	require.NoError(t, db.Create(&comment).Error)
	return comment
}
