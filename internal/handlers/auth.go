package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/auth"
	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

type AuthHandler struct {
	db     *gorm.DB
	tokens *auth.Tokens
	google auth.GoogleVerifier
}

func NewAuthHandler(db *gorm.DB, tokens *auth.Tokens, google auth.GoogleVerifier) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, google: google}
}

// respond issues a token for user and writes the auth response.
func (h *AuthHandler) respond(c *gin.Context, status int, user models.User, message string) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(status, models.AuthResponse{Token: token, User: user, Message: message})
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	db := h.db.WithContext(c.Request.Context())
	var existing int64
	db.Model(&models.User{}).Where("username = ? OR email = ?", input.Username, input.Email).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		Password:     string(hashedPassword),
		Avatar:       input.Avatar,
		AuthProvider: "email",
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.respond(c, http.StatusCreated, user, "User registered successfully")
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("email = ? AND auth_provider = ?", strings.ToLower(strings.TrimSpace(input.Email)), "email").
		First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.respond(c, http.StatusOK, user, "Login successful")
}

// GoogleLogin signs in with a Google ID token, creating the account on
// first use and linking it to an existing email account otherwise.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var input models.OAuthRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google sign-in is not configured"})
		return
	}

	ctx := c.Request.Context()
	googleUser, err := h.google.Verify(ctx, input.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google token"})
		return
	}

	db := h.db.WithContext(ctx)
	var user models.User
	err = db.Where("email = ? OR google_id = ?", strings.ToLower(googleUser.Email), googleUser.Sub).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		username := input.Username
		if username == "" {
			username = generateUsernameFromEmail(googleUser.Email)
		}

		avatar := input.Avatar
		if avatar == "" {
			avatar = googleUser.Picture
		}

		user = models.User{
			Username:     h.ensureUniqueUsername(db, username),
			Email:        strings.ToLower(googleUser.Email),
			Avatar:       avatar,
			GoogleID:     googleUser.Sub,
			AuthProvider: "google",
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	default:
		updates := map[string]any{}
		if user.GoogleID == "" {
			updates["google_id"] = googleUser.Sub
		}
		if input.Avatar != "" && user.Avatar == "" {
			updates["avatar"] = input.Avatar
		}
		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
				return
			}
		}
	}

	h.respond(c, http.StatusOK, user, "")
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func generateUsernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func (h *AuthHandler) ensureUniqueUsername(db *gorm.DB, base string) string {
	username := base
	for counter := 1; ; counter++ {
		var n int64
		if err := db.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil || n == 0 {
			return username
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
}
