package messaging

import (
	"errors"
	"sort"

	"sociogram/backend/internal/models"

	"gorm.io/gorm"
)

// Summary is one dialog-list card: the dialog, its latest message and the
// viewer's unread count for it. Dialogs without messages are omitted.
type Summary struct {
	Dialog      models.Dialog
	Other       models.User
	LastMessage models.Message
	Unread      int64
}

// Summaries returns the user's dialogs ordered by latest message, newest
// first.
func (e *Engine) Summaries(userID uint) ([]Summary, error) {
	var dialogs []models.Dialog
	if err := e.db.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Preload("User1").Preload("User2").
		Find(&dialogs).Error; err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(dialogs))
	for _, dialog := range dialogs {
		var last models.Message
		err := e.db.Where("dialog_id = ?", dialog.ID).
			Order("send_date desc, id desc").
			First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var unread int64
		if err := e.db.Model(&models.Message{}).
			Where("dialog_id = ? AND to_user_id = ? AND is_read = ?", dialog.ID, userID, false).
			Count(&unread).Error; err != nil {
			return nil, err
		}

		other := dialog.User1
		if dialog.User1ID == userID {
			other = dialog.User2
		}

		summaries = append(summaries, Summary{
			Dialog:      dialog,
			Other:       other,
			LastMessage: last,
			Unread:      unread,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.SendDate.After(summaries[j].LastMessage.SendDate)
	})
	return summaries, nil
}
