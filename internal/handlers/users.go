package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

type UserHandler struct {
	db    *gorm.DB
	posts *PostHandler
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db, posts: &PostHandler{db: db}}
}

// GetUserProfile returns a user's profile
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var posts []models.Post
	if err := db.Where("author_id = ?", userID).Preload("Author").Order("created_at desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	rendered, err := h.posts.render(c, posts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	var followerCount, followingCount int64
	db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&followerCount)
	db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&followingCount)

	isFollowing := false
	if viewerID, ok := extractUserID(c); ok {
		var n int64
		db.Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", viewerID, userID).Count(&n)
		isFollowing = n > 0
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"bio":      user.Bio,
			"avatar":   user.Avatar,
			"website":  user.Website,
		},
		"posts":           rendered,
		"follower_count":  followerCount,
		"following_count": followingCount,
		"is_following":    isFollowing,
	})
}

func (h *UserHandler) UpdateUserProfile(c *gin.Context) {
	authUserID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if authUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own profile"})
		return
	}

	var input struct {
		Bio     *string `json:"bio"`
		Avatar  *string `json:"avatar"`
		Website *string `json:"website" binding:"omitempty,url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	updates := map[string]any{}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.Avatar != nil {
		updates["avatar"] = *input.Avatar
	}
	if input.Website != nil {
		updates["website"] = *input.Website
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}

	c.JSON(http.StatusOK, user)
}

// FollowUser follows a user
func (h *UserHandler) FollowUser(c *gin.Context) {
	followerID, ok := currentUser(c)
	if !ok {
		return
	}
	followingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var followingUser models.User
	if err := db.First(&followingUser, followingID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if followingUser.ID == followerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot follow yourself"})
		return
	}

	var existing models.Follow
	err := db.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already following this user"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow user"})
		return
	}

	if err := db.Create(&models.Follow{FollowerID: followerID, FollowingID: followingUser.ID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully followed user"})
}

// UnfollowUser unfollows a user
func (h *UserHandler) UnfollowUser(c *gin.Context) {
	followerID, ok := currentUser(c)
	if !ok {
		return
	}
	followingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unfollow"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully unfollowed user"})
}

// GetFollowers returns a user's followers
func (h *UserHandler) GetFollowers(c *gin.Context) {
	h.listFollows(c, "following_id", "Follower", func(f models.Follow) models.User { return f.Follower })
}

// GetFollowing returns users that a user is following
func (h *UserHandler) GetFollowing(c *gin.Context) {
	h.listFollows(c, "follower_id", "Following", func(f models.Follow) models.User { return f.Following })
}

func (h *UserHandler) listFollows(c *gin.Context, column, preload string, pick func(models.Follow) models.User) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var follows []models.Follow
	if err := h.db.WithContext(c.Request.Context()).
		Where(column+" = ?", userID).
		Preload(preload).
		Order("created_at desc").
		Find(&follows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(follows, func(f models.Follow, _ int) userSummary {
		return summarize(pick(f))
	}))
}
