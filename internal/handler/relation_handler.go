package handler

import (
	"errors"
	"net/http"
	"strconv"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/hub"
	"sociogram/backend/internal/relations"

	"github.com/gin-gonic/gin"
)

// RelationResponse is returned by every relationship action. Stale is set
// when the other party changed the relationship concurrently; Status is then
// the freshly recomputed view, not the outcome the caller asked for.
type RelationResponse struct {
	Status relations.Status `json:"status"`
	Stale  bool             `json:"stale,omitempty"`
}

// friendshipPush signals the other party that their relationship view for
// the actor changed; the details are waiting in their notification outbox.
type friendshipPush struct {
	Resource string `json:"resource"`
	ActorID  uint   `json:"actor_id"`
}

// respondRelation converts an engine result into the soft-fail HTTP
// contract: success and stale-resync are both 200, only real faults error.
func respondRelation(c *gin.Context, actorID, otherID uint, status relations.Status, err error) {
	if err == nil {
		hub.GlobalHub.Send(hub.EventUpdate, friendshipPush{Resource: "friendship", ActorID: actorID}, otherID)
		c.JSON(http.StatusOK, RelationResponse{Status: status})
		return
	}

	if stale, ok := relations.IsStale(err); ok {
		hub.GlobalHub.Send(hub.EventWarning, gin.H{
			"message": "The other user changed your friendship state; showing the current one.",
		}, actorID)
		c.JSON(http.StatusOK, RelationResponse{Status: stale.Status, Stale: true})
		return
	}

	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrDataIntegrity):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Corrupted relationship state"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update relationship"})
	}
}

func relationAction(c *gin.Context, action func(actorID, otherID uint) (relations.Status, error)) {
	viewerID, _ := c.Get("userID")
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}
	if _, err := Identity.FindByID(uint(targetID)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target user not found"})
		return
	}

	actorID := viewerID.(uint)
	status, err := action(actorID, uint(targetID))
	respondRelation(c, actorID, uint(targetID), status, err)
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request to another user (subscribes). A stale result means the relationship changed concurrently; the body carries the current status.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  RelationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Router       /users/{id}/request [post]
func SendRequest(c *gin.Context) {
	relationAction(c, Relations.SendRequest)
}

// CancelRequest godoc
// @Summary      Cancel a sent friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  RelationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/cancel [post]
func CancelRequest(c *gin.Context) {
	relationAction(c, Relations.CancelRequest)
}

// AcceptRequest godoc
// @Summary      Accept a friend request
// @Description  Accepts the pending offer between the two users, whichever side sent it.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Other User ID"
// @Success      200  {object}  RelationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func AcceptRequest(c *gin.Context) {
	relationAction(c, Relations.Accept)
}

// Unfriend godoc
// @Summary      Remove a user from friends
// @Description  Deletes the friendship; the removed side keeps a pre-answered outgoing offer towards the actor.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Friend User ID"
// @Success      200  {object}  RelationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/unfriend [post]
func Unfriend(c *gin.Context) {
	relationAction(c, Relations.Unfriend)
}

// MarkOfferSeen godoc
// @Summary      Leave a requester as subscriber
// @Description  Dismisses a pending incoming offer without accepting it; the sender stays a subscriber.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  RelationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/seen [post]
func MarkOfferSeen(c *gin.Context) {
	relationAction(c, Relations.MarkSeen)
}
