package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/hub"
	"sociogram/backend/internal/messaging"
	"sociogram/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// MessageResponse is one message in a dialog.
type MessageResponse struct {
	ID         uint      `json:"id"`
	DialogID   uint      `json:"dialog_id"`
	FromUserID uint      `json:"from_user_id"`
	ToUserID   uint      `json:"to_user_id"`
	Content    string    `json:"content"`
	SendDate   time.Time `json:"send_date"`
	IsRead     bool      `json:"is_read"`
}

// DialogSummaryResponse is one dialog-list card.
type DialogSummaryResponse struct {
	DialogID    uint               `json:"dialog_id"`
	Other       PublicUserResponse `json:"other"`
	LastMessage MessageResponse    `json:"last_message"`
	Preview     string             `json:"preview"`
	Unread      int64              `json:"unread"`
}

// DialogResponse is an opened dialog: its messages plus the ids that were
// just marked read by opening it.
type DialogResponse struct {
	DialogID uint               `json:"dialog_id"`
	Other    PublicUserResponse `json:"other"`
	Messages []MessageResponse  `json:"messages"`
	JustRead []uint             `json:"just_read"`
}

// SendMessageInput carries a new message body.
type SendMessageInput struct {
	Content string `json:"content" binding:"required"`
}

const previewLength = 40

func messageResponse(m models.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		DialogID:   m.DialogID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Content:    m.Content,
		SendDate:   m.SendDate,
		IsRead:     m.IsRead,
	}
}

// GetDialogs godoc
// @Summary      List dialogs
// @Description  Returns the user's dialogs ordered by latest message, with previews and unread counts.
// @Tags         dialogs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   DialogSummaryResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /dialogs [get]
func GetDialogs(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	summaries, err := Messaging.Summaries(viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dialogs"})
		return
	}

	resp := make([]DialogSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, DialogSummaryResponse{
			DialogID:    s.Dialog.ID,
			Other:       buildPublicUserResponse(s.Other, viewerID.(uint)),
			LastMessage: messageResponse(s.LastMessage),
			Preview:     s.LastMessage.Preview(previewLength),
			Unread:      s.Unread,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// OpenDialog godoc
// @Summary      Open the dialog with a user
// @Description  Finds or lazily creates the dialog with the given user, returns its messages and marks everything addressed to the viewer as read.
// @Tags         dialogs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Other User ID"
// @Success      200  {object}  DialogResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /dialogs/with/{id} [get]
func OpenDialog(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	otherID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	other, err := Identity.FindByID(uint(otherID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	dialog, err := Messaging.GetOrCreateDialog(viewerID.(uint), uint(otherID))
	if err != nil {
		respondMessagingError(c, err)
		return
	}

	justRead, err := Messaging.MarkRead(dialog.ID, viewerID.(uint))
	if err != nil {
		respondMessagingError(c, err)
		return
	}
	if len(justRead) > 0 {
		// Both sides learn about the read state change; the outbox holds
		// the details for whoever misses the push.
		hub.GlobalHub.Send(hub.EventUpdate, messaging.ReadPayload{
			DialogID:   dialog.ID,
			ReaderID:   viewerID.(uint),
			MessageIDs: justRead,
		}, viewerID.(uint), uint(otherID))
	}

	msgs, err := Messaging.Messages(dialog.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	resp := DialogResponse{
		DialogID: dialog.ID,
		Other:    buildPublicUserResponse(*other, viewerID.(uint)),
		Messages: make([]MessageResponse, 0, len(msgs)),
		JustRead: justRead,
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

// AppendMessage godoc
// @Summary      Send a message
// @Tags         dialogs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Dialog ID"
// @Param        input body      SendMessageInput  true  "Message content"
// @Success      201  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not a dialog participant"
// @Failure      404  {object}  ErrorResponse
// @Router       /dialogs/{id}/messages [post]
func AppendMessage(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	dialogID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dialog ID"})
		return
	}

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := Messaging.AppendMessage(uint(dialogID), viewerID.(uint), input.Content)
	if err != nil {
		respondMessagingError(c, err)
		return
	}

	hub.GlobalHub.Send(hub.EventUpdate, messaging.MessagePayload{
		ID:         message.ID,
		DialogID:   message.DialogID,
		FromUserID: message.FromUserID,
		ToUserID:   message.ToUserID,
		Content:    message.Content,
		SendDate:   message.SendDate,
	}, message.FromUserID, message.ToUserID)

	c.JSON(http.StatusCreated, messageResponse(*message))
}

// MarkMessageRead godoc
// @Summary      Mark a single message as read
// @Tags         dialogs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Message ID"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id}/read [post]
func MarkMessageRead(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	messageID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	if err := Messaging.MarkMessageRead(uint(messageID), viewerID.(uint)); err != nil {
		respondMessagingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

// GetUnreadCounts godoc
// @Summary      Unread message counts grouped by sender
// @Tags         dialogs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[uint]int64
// @Failure      401  {object}  ErrorResponse
// @Router       /dialogs/unread [get]
func GetUnreadCounts(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	counts, err := Messaging.UnreadCounts(viewerID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch unread counts"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func respondMessagingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Messaging operation failed"})
	}
}
