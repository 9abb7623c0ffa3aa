package handler

import (
	"net/http"
	"strconv"
	"time"

	"sociogram/backend/internal/database"
	"sociogram/backend/internal/models"
	"sociogram/backend/internal/relations"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID        uint             `json:"id" example:"1"`
	Nickname  string           `json:"nickname" example:"testuser"`
	Status    string           `json:"status,omitempty"`
	AboutMe   string           `json:"about_me,omitempty"`
	ImageName string           `json:"image_name,omitempty"`
	LastSeen  time.Time        `json:"last_seen"`
	Counts    relations.Counts `json:"counts"`
	// Relation is the viewer's relationship status towards this user.
	Relation *relations.Status `json:"relation,omitempty"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID        uint             `json:"id" example:"1"`
	Nickname  string           `json:"nickname" example:"testuser"`
	Email     string           `json:"email" example:"test@example.com"`
	Status    string           `json:"status,omitempty"`
	AboutMe   string           `json:"about_me,omitempty"`
	ImageName string           `json:"image_name,omitempty"`
	Counts    relations.Counts `json:"counts"`
}

// UpdateProfileInput carries editable profile fields.
type UpdateProfileInput struct {
	Nickname *string `json:"nickname" binding:"omitempty,nickname"`
	Status   *string `json:"status"`
	AboutMe  *string `json:"about_me"`
	// NewAvatar requests a fresh generated image name; the upload itself
	// goes to the file-storage collaborator under that name.
	NewAvatar bool `json:"new_avatar"`
}

func buildPublicUserResponse(user models.User, viewerID uint) PublicUserResponse {
	resp := PublicUserResponse{
		ID:        user.ID,
		Nickname:  user.Nickname,
		Status:    user.Status,
		AboutMe:   user.AboutMe,
		ImageName: user.ImageName,
		LastSeen:  user.LastSeen,
	}
	if counts, err := Relations.CountsFor(user.ID); err == nil {
		resp.Counts = counts
	}
	if viewerID != 0 && viewerID != user.ID {
		if st, err := Relations.Status(viewerID, user.ID); err == nil {
			resp.Relation = &st
		}
	}
	return resp
}

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches for users by nickname with pagination.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query for nickname"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedResponse[PublicUserResponse]
// @Failure      401   {object}  ErrorResponse
// @Router       /users [get]
func SearchUsers(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	searchQuery := c.Query("q")

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

	query := database.DB.Model(&models.User{}).Where("id <> ?", viewerID)
	if searchQuery != "" {
		query = query.Where("nickname LIKE ?", "%"+searchQuery+"%")
	}

	paginated, err := Paginate[models.User](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	userResponses := make([]PublicUserResponse, 0, len(paginated.Data))
	for _, user := range paginated.Data {
		userResponses = append(userResponses, buildPublicUserResponse(user, viewerID.(uint)))
	}

	c.JSON(http.StatusOK, PaginatedResponse[PublicUserResponse]{
		Data: userResponses,
		Meta: paginated.Meta,
	})
}

// GetMe godoc
// @Summary      Get own profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	user, err := Identity.FindByID(viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	resp := PrivateUserResponse{
		ID:        user.ID,
		Nickname:  user.Nickname,
		Email:     user.Email,
		Status:    user.Status,
		AboutMe:   user.AboutMe,
		ImageName: user.ImageName,
	}
	if counts, err := Relations.CountsFor(user.ID); err == nil {
		resp.Counts = counts
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateMe godoc
// @Summary      Edit own profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UpdateProfileInput true "Profile fields"
// @Success      200  {object}  PrivateUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me [put]
func UpdateMe(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if input.Nickname != nil {
		updates["nickname"] = *input.Nickname
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.AboutMe != nil {
		updates["about_me"] = *input.AboutMe
	}
	if input.NewAvatar {
		updates["image_name"] = uuid.NewString()
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&models.User{}).
			Where("id = ?", viewerID).
			Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}

	GetMe(c)
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves the public profile for a specific user, including the viewer's relationship status.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func GetUserByID(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	user, err := Identity.FindByID(uint(targetID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPublicUserResponse(*user, viewerID.(uint)))
}

// GetFriends godoc
// @Summary      List a user's friends
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /users/{id}/friends [get]
func GetFriends(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	friends, err := Relations.Friends(uint(targetID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch friends"})
		return
	}

	resp := make([]PublicUserResponse, 0, len(friends))
	for _, user := range friends {
		resp = append(resp, buildPublicUserResponse(user, viewerID.(uint)))
	}
	c.JSON(http.StatusOK, resp)
}

// SubscriberResponse is a subscriber card: the user plus whether their offer
// was already answered (left pending).
type SubscriberResponse struct {
	PublicUserResponse
	Answered bool `json:"answered"`
}

// GetSubscribers godoc
// @Summary      List a user's subscribers
// @Description  Users with an unresolved friendship offer towards this user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   SubscriberResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /users/{id}/subscribers [get]
func GetSubscribers(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	subs, err := Relations.Subscribers(uint(targetID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscribers"})
		return
	}

	resp := make([]SubscriberResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, SubscriberResponse{
			PublicUserResponse: buildPublicUserResponse(sub.User, viewerID.(uint)),
			Answered:           sub.Answered,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GetOffers godoc
// @Summary      List a user's outgoing friendship offers
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /users/{id}/offers [get]
func GetOffers(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	offers, err := Relations.Outgoing(uint(targetID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch offers"})
		return
	}

	resp := make([]PublicUserResponse, 0, len(offers))
	for _, user := range offers {
		resp = append(resp, buildPublicUserResponse(user, viewerID.(uint)))
	}
	c.JSON(http.StatusOK, resp)
}
