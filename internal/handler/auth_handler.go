package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"sociogram/backend/internal/config"
	"sociogram/backend/internal/identity"
	"sociogram/backend/internal/mail"
	"sociogram/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Nickname string `json:"nickname" binding:"required,nickname" example:"testuser"`
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// RecoverInput requests a password recovery mail.
type RecoverInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetInput carries a recovery token and the new password.
type ResetInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ChangePasswordInput changes the password of the authenticated user.
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func sessionTTL() time.Duration {
	return time.Duration(config.AppConfig.TokenTTLSeconds) * time.Second
}

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user, sends a welcome mail and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := Identity.CreateUser(input.Nickname, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	// Fire-and-forget; registration never waits on SMTP.
	mail.SendAsync("Welcome to Sociogram", []string{user.Email},
		fmt.Sprintf("<h1>Hello, %s!</h1><p>Your account is ready.</p>", user.Nickname))

	token, err := Identity.IssueToken(user, sessionTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := Identity.VerifyCredentials(input.Email, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := Identity.IssueToken(user, sessionTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// RecoverPassword godoc
// @Summary      Request a password recovery mail
// @Description  Sends a short-lived reset link to the given address. Always answers 200 so addresses cannot be probed.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RecoverInput true "Account email"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Router       /auth/recover [post]
func RecoverPassword(c *gin.Context) {
	var input RecoverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if user, err := Identity.FindByEmail(input.Email); err == nil {
		ttl := time.Duration(config.AppConfig.MailTokenTTLSeconds) * time.Second
		if token, err := Identity.IssueToken(user, ttl); err == nil {
			link := fmt.Sprintf("%s/reset?token=%s", config.AppConfig.PublicBaseURL, token)
			mail.SendAsync("Password recovery", []string{user.Email},
				fmt.Sprintf(`<p>To set a new password, follow <a href="%s">this link</a>. It expires shortly.</p>`, link))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the address is registered, a recovery mail is on its way"})
}

// ResetPassword godoc
// @Summary      Set a new password using a recovery token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body ResetInput true "Token and new password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse "Invalid or expired token"
// @Router       /auth/reset [post]
func ResetPassword(c *gin.Context) {
	var input ResetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := jwt.ParseToken(input.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := Identity.SetPassword(userID, input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// ChangePassword godoc
// @Summary      Change the authenticated user's password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ChangePasswordInput true "Old and new password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse "Wrong old password"
// @Router       /auth/password [post]
func ChangePassword(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := Identity.FindByID(viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if _, err := Identity.VerifyCredentials(user.Email, input.OldPassword); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong old password"})
		return
	}

	if err := Identity.SetPassword(user.ID, input.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
