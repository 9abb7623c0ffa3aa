package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sociogram/backend/internal/database"
	"sociogram/backend/internal/outbox"

	"github.com/gin-gonic/gin"
)

// NotificationResponse is one pending notification record.
type NotificationResponse struct {
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp float64         `json:"timestamp"`
}

// GetNotifications godoc
// @Summary      Poll pending notifications
// @Description  Returns every notification strictly newer than the cursor, ascending by timestamp, and deletes them server-side. A repeat poll with the same cursor returns nothing.
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        since query number false "Timestamp cursor (fractional unix seconds)" default(0)
// @Success      200  {array}   NotificationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /notifications [get]
func GetNotifications(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	since, err := strconv.ParseFloat(c.DefaultQuery("since", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	notifications, err := outbox.PollSince(database.DB, viewerID.(uint), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	resp := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, NotificationResponse{
			Name:      n.Kind,
			Payload:   json.RawMessage(n.Payload),
			Timestamp: n.Timestamp,
		})
	}
	c.JSON(http.StatusOK, resp)
}
