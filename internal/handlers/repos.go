package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

type RepoHandler struct {
	db *gorm.DB
}

func NewRepoHandler(db *gorm.DB) *RepoHandler {
	return &RepoHandler{db: db}
}

// visibleRepo loads a repository the caller may see. Private repositories
// are reported as missing to everyone but their owner.
func (h *RepoHandler) visibleRepo(c *gin.Context) (models.Repository, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return models.Repository{}, false
	}

	var repo models.Repository
	if err := h.db.WithContext(c.Request.Context()).Preload("Owner").First(&repo, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Repository not found"})
		return models.Repository{}, false
	}

	if !repo.IsPublic {
		if userID, _ := extractUserID(c); userID != repo.OwnerID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Repository not found"})
			return models.Repository{}, false
		}
	}
	return repo, true
}

// ownedRepo loads a repository and requires the caller to own it.
func (h *RepoHandler) ownedRepo(c *gin.Context) (models.Repository, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return models.Repository{}, false
	}
	repo, ok := h.visibleRepo(c)
	if !ok {
		return models.Repository{}, false
	}
	if repo.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own repositories"})
		return models.Repository{}, false
	}
	return repo, true
}

func (h *RepoHandler) GetRepos(c *gin.Context) {
	p := parsePage(c)
	query := h.db.WithContext(c.Request.Context()).Model(&models.Repository{}).Where("is_public = ?", true)
	if owner := c.Query("owner"); owner != "" {
		query = query.Where("owner_id = ?", owner)
	}

	var total int64
	query.Count(&total)

	var repos []models.Repository
	if err := p.apply(query).Preload("Owner").Order("updated_at desc").Find(&repos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch repositories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     total,
		"page":      p.Page,
		"page_size": p.PageSize,
		"results":   repos,
	})
}

func (h *RepoHandler) GetRepo(c *gin.Context) {
	if repo, ok := h.visibleRepo(c); ok {
		c.JSON(http.StatusOK, repo)
	}
}

func (h *RepoHandler) CreateRepo(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input models.CreateRepositoryRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	repo := models.Repository{
		OwnerID:       userID,
		Name:          input.Name,
		Description:   input.Description,
		IsPublic:      input.IsPublic == nil || *input.IsPublic,
		DefaultBranch: input.DefaultBranch,
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}

	db := h.db.WithContext(c.Request.Context())
	var existing int64
	db.Model(&models.Repository{}).Where("owner_id = ? AND name = ?", userID, input.Name).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Repository name already in use"})
		return
	}

	if err := db.Create(&repo).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create repository"})
		return
	}

	db.Preload("Owner").First(&repo, repo.ID)
	c.JSON(http.StatusCreated, repo)
}

func (h *RepoHandler) UpdateRepo(c *gin.Context) {
	repo, ok := h.ownedRepo(c)
	if !ok {
		return
	}

	var input struct {
		Description   *string `json:"description"`
		IsPublic      *bool   `json:"is_public"`
		DefaultBranch *string `json:"default_branch" binding:"omitempty,max=50"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}
	if input.DefaultBranch != nil && *input.DefaultBranch != "" {
		updates["default_branch"] = *input.DefaultBranch
	}

	db := h.db.WithContext(c.Request.Context())
	if len(updates) > 0 {
		if err := db.Model(&models.Repository{}).Where("id = ?", repo.ID).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update repository"})
			return
		}
	}

	db.Preload("Owner").First(&repo, repo.ID)
	c.JSON(http.StatusOK, repo)
}

func (h *RepoHandler) DeleteRepo(c *gin.Context) {
	repo, ok := h.ownedRepo(c)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("repository_id = ?", repo.ID).Delete(&models.Commit{}).Error; err != nil {
			return err
		}
		return tx.Delete(&repo).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete repository"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Repository deleted successfully"})
}

func (h *RepoHandler) GetCommits(c *gin.Context) {
	repo, ok := h.visibleRepo(c)
	if !ok {
		return
	}
	p := parsePage(c)

	query := h.db.WithContext(c.Request.Context()).Where("repository_id = ?", repo.ID)
	if branch := c.Query("branch"); branch != "" {
		query = query.Where("branch = ?", branch)
	}

	var commits []models.Commit
	if err := p.apply(query).Order("committed_at desc").Find(&commits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch commits"})
		return
	}
	c.JSON(http.StatusOK, commits)
}

func (h *RepoHandler) CreateCommit(c *gin.Context) {
	repo, ok := h.ownedRepo(c)
	if !ok {
		return
	}

	var input models.CreateCommitRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	commit := models.Commit{
		RepositoryID: repo.ID,
		AuthorID:     repo.OwnerID,
		Hash:         strings.ToLower(input.Hash),
		Message:      input.Message,
		Branch:       input.Branch,
		CommittedAt:  time.Now().UTC(),
	}
	if commit.Branch == "" {
		commit.Branch = repo.DefaultBranch
	}
	if input.CommittedAt != nil {
		commit.CommittedAt = input.CommittedAt.UTC()
	}

	db := h.db.WithContext(c.Request.Context())
	var existing models.Commit
	err := db.Where("repository_id = ? AND hash = ?", repo.ID, commit.Hash).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Commit already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create commit"})
		return
	}

	if err := db.Create(&commit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create commit"})
		return
	}
	c.JSON(http.StatusCreated, commit)
}
