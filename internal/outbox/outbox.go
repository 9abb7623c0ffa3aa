// Package outbox is the durable per-user notification queue.
//
// Every state-changing operation on the relationship or messaging engines
// enqueues here inside its own transaction; clients drain the queue through
// PollSince. The outbox is the durability backstop for the best-effort push
// channel: a dropped push costs nothing because the notification stays queued
// until the next poll.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"sociogram/backend/internal/metrics"
	"sociogram/backend/internal/models"

	"gorm.io/gorm"
)

// Notification kinds.
const (
	KindFriendshipUpdate = "friendship_update"
	KindUnreadMessages   = "unread_messages"
	KindMessageAppended  = "message_appended"
	KindMessagesRead     = "messages_read"
)

// Enqueue records a notification for a user. Any queued notification of the
// same kind is cleared first, so a client that polls late sees only the
// latest state per kind instead of a backlog of superseded ones.
func Enqueue(tx *gorm.DB, userID uint, kind string, payload any) (*models.Notification, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	if err := tx.Where("user_id = ? AND kind = ?", userID, kind).
		Delete(&models.Notification{}).Error; err != nil {
		return nil, err
	}

	n := models.Notification{
		UserID:    userID,
		Kind:      kind,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Payload:   string(data),
	}
	if err := tx.Create(&n).Error; err != nil {
		return nil, err
	}

	metrics.NotificationsEnqueued.Inc()
	return &n, nil
}

// PollSince returns every notification for the user strictly newer than the
// cursor, ascending by timestamp, and deletes what it returns. Delivery is
// at-most-once per poll cycle; anything not returned simply stays queued.
func PollSince(db *gorm.DB, userID uint, cursor float64) ([]models.Notification, error) {
	var out []models.Notification
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND timestamp > ?", userID, cursor).
			Order("timestamp asc, id asc").
			Find(&out).Error; err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}

		ids := make([]uint, len(out))
		for i, n := range out {
			ids[i] = n.ID
		}
		return tx.Delete(&models.Notification{}, ids).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
