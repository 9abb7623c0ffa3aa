package handler

import (
	"io"

	"sociogram/backend/internal/hub"

	"github.com/gin-gonic/gin"
)

// StreamEvents godoc
// @Summary      Live event stream
// @Description  Server-sent events carrying push updates for the authenticated user. Best-effort; the notifications endpoint is the durable fallback.
// @Tags         notifications
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {string}  string  "event stream"
// @Failure      401  {object}  ErrorResponse
// @Router       /stream [get]
func StreamEvents(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	client := hub.GlobalHub.Bind(viewerID.(uint))
	defer hub.GlobalHub.Unbind(client.ID)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.C:
			if !ok {
				return false
			}
			c.SSEvent("push", string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
