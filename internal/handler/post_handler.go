package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/database"
	"sociogram/backend/internal/feed"
	"sociogram/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostInput carries post creation/edit fields.
type PostInput struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	TagIDs  []uint `json:"tag_ids"`
	// WithImage requests a generated image name; the upload goes to the
	// file-storage collaborator under that name.
	WithImage bool `json:"with_image"`
}

// RateInput is a +1/-1 vote.
type RateInput struct {
	Value int `json:"value" binding:"required,oneof=1 -1"`
}

// PostResponse is a post with its vote totals.
type PostResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Nickname  string    `json:"nickname"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageName string    `json:"image_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []string  `json:"tags"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
	// MyRate is the viewer's own vote (-1, 0 or +1); 0 for anonymous viewers.
	MyRate int `json:"my_rate"`
}

func buildPostResponse(post models.Post, viewerID uint) PostResponse {
	resp := PostResponse{
		ID:        post.ID,
		UserID:    post.UserID,
		Nickname:  post.User.Nickname,
		Title:     post.Title,
		Content:   post.Content,
		ImageName: post.ImageName,
		CreatedAt: post.CreatedAt,
		Tags:      make([]string, 0, len(post.Tags)),
	}
	for _, tag := range post.Tags {
		resp.Tags = append(resp.Tags, tag.Name)
	}

	database.DB.Model(&models.PostRate{}).
		Where("post_id = ? AND value > 0", post.ID).Count(&resp.Likes)
	database.DB.Model(&models.PostRate{}).
		Where("post_id = ? AND value < 0", post.ID).Count(&resp.Dislikes)

	if viewerID != 0 {
		var rate models.PostRate
		if err := database.DB.Where("post_id = ? AND user_id = ?", post.ID, viewerID).
			First(&rate).Error; err == nil {
			resp.MyRate = rate.Value
		}
	}
	return resp
}

// GetFeed godoc
// @Summary      List posts
// @Description  Posts filtered by tags and sorted per request; filter and sort never leak between viewers.
// @Tags         posts
// @Produce      json
// @Param        tags    query  string  false  "Comma-separated tag ids"
// @Param        sort_by query  string  false  "create_date or rating" default(create_date)
// @Param        order   query  string  false  "asc or desc" default(desc)
// @Param        page    query  int     false  "Page number" default(1)
// @Param        limit   query  int     false  "Items per page" default(10)
// @Success      200  {object}  PaginatedResponse[PostResponse]
// @Failure      400  {object}  ErrorResponse
// @Router       /posts [get]
func GetFeed(c *gin.Context) {
	var viewerID uint
	if v, ok := c.Get("userID"); ok {
		viewerID = v.(uint)
	}

	query := feed.Query{
		SortBy: c.DefaultQuery("sort_by", feed.SortByDate),
		Order:  c.DefaultQuery("order", "desc"),
	}
	if raw := c.Query("tags"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag id"})
				return
			}
			query.TagIDs = append(query.TagIDs, uint(id))
		}
	}

	posts, err := feed.Posts(database.DB, query)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	total := int64(len(posts))
	start := (page - 1) * limit
	if start > len(posts) {
		start = len(posts)
	}
	end := start + limit
	if end > len(posts) {
		end = len(posts)
	}

	data := make([]PostResponse, 0, end-start)
	for _, post := range posts[start:end] {
		data = append(data, buildPostResponse(post, viewerID))
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(data, total, page, limit))
}

// CreatePost godoc
// @Summary      Create a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body PostInput true "Post fields"
// @Success      201  {object}  PostResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /posts [post]
func CreatePost(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.Post{
		UserID:  viewerID.(uint),
		Title:   input.Title,
		Content: input.Content,
	}
	if input.WithImage {
		post.ImageName = uuid.NewString()
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return replaceTags(tx, &post, input.TagIDs)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	reloaded, err := loadPost(post.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}
	c.JSON(http.StatusCreated, buildPostResponse(*reloaded, viewerID.(uint)))
}

// UpdatePost godoc
// @Summary      Edit a post
// @Description  Only the author may edit.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int       true  "Post ID"
// @Param        input body  PostInput true  "Post fields"
// @Success      200  {object}  PostResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [put]
func UpdatePost(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := loadPost(uint(postID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if post.UserID != viewerID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author may edit this post"})
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"title": input.Title, "content": input.Content}
		if input.WithImage && post.ImageName == "" {
			updates["image_name"] = uuid.NewString()
		}
		if err := tx.Model(post).Updates(updates).Error; err != nil {
			return err
		}
		return replaceTags(tx, post, input.TagIDs)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	reloaded, err := loadPost(post.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}
	c.JSON(http.StatusOK, buildPostResponse(*reloaded, viewerID.(uint)))
}

// DeletePost godoc
// @Summary      Delete a post
// @Description  Only the author may delete.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  int  true  "Post ID"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [delete]
func DeletePost(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	post, err := loadPost(uint(postID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if post.UserID != viewerID.(uint) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author may delete this post"})
		return
	}

	if err := database.DB.Select("Tags", "Rates").Delete(post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// RatePost godoc
// @Summary      Rate a post
// @Description  Casts a +1/-1 vote. Re-sending the same value removes the vote; the opposite value switches it.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int       true  "Post ID"
// @Param        input body  RateInput true  "Vote"
// @Success      200  {object}  PostResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id}/rate [post]
func RatePost(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var input RateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := loadPost(uint(postID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.PostRate
		findErr := tx.Where("post_id = ? AND user_id = ?", post.ID, viewerID).
			First(&existing).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			return tx.Create(&models.PostRate{
				PostID: post.ID,
				UserID: viewerID.(uint),
				Value:  input.Value,
			}).Error
		case findErr != nil:
			return findErr
		case existing.Value == input.Value:
			// Same button again withdraws the vote.
			return tx.Where("post_id = ? AND user_id = ?", post.ID, viewerID).
				Delete(&models.PostRate{}).Error
		default:
			return tx.Model(&models.PostRate{}).
				Where("post_id = ? AND user_id = ?", post.ID, viewerID).
				Update("value", input.Value).Error
		}
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rate post"})
		return
	}

	c.JSON(http.StatusOK, buildPostResponse(*post, viewerID.(uint)))
}

// GetTags godoc
// @Summary      List tags
// @Tags         posts
// @Produce      json
// @Success      200  {array}  models.Tag
// @Router       /tags [get]
func GetTags(c *gin.Context) {
	var tags []models.Tag
	if err := database.DB.Order("name asc").Find(&tags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}
	c.JSON(http.StatusOK, tags)
}

func loadPost(postID uint) (*models.Post, error) {
	var post models.Post
	err := database.DB.Preload("Tags").Preload("User").First(&post, postID).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func replaceTags(tx *gorm.DB, post *models.Post, tagIDs []uint) error {
	if tagIDs == nil {
		return nil
	}
	var tags []*models.Tag
	if err := tx.Find(&tags, tagIDs).Error; err != nil {
		return err
	}
	return tx.Model(post).Association("Tags").Replace(tags)
}
