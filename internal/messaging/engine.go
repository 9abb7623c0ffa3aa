// Package messaging implements per-pair dialogs with read/unread tracking.
//
// Messages are append-only and totally ordered by send date (id breaks
// ties); that ordering is load-bearing for last-message previews. Read-state
// changes enqueue outbox notifications in the same transaction.
package messaging

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sociogram/backend/internal/apperr"
	"sociogram/backend/internal/models"
	"sociogram/backend/internal/outbox"

	"gorm.io/gorm"
)

type Engine struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// MessagePayload is the structured push/outbox payload for a new message.
type MessagePayload struct {
	ID         uint      `json:"id"`
	DialogID   uint      `json:"dialog_id"`
	FromUserID uint      `json:"from_user_id"`
	ToUserID   uint      `json:"to_user_id"`
	Content    string    `json:"content"`
	SendDate   time.Time `json:"send_date"`
}

// ReadPayload reports which messages of a dialog were just read.
type ReadPayload struct {
	DialogID   uint   `json:"dialog_id"`
	ReaderID   uint   `json:"reader_id"`
	MessageIDs []uint `json:"message_ids"`
}

// UnreadPayload carries the recipient's number of dialogs with unread
// messages, for badge rendering.
type UnreadPayload struct {
	UnreadDialogs int `json:"unread_dialogs"`
}

// GetOrCreateDialog finds the dialog for an unordered user pair, creating an
// empty one if none exists. Idempotent.
func (e *Engine) GetOrCreateDialog(userA, userB uint) (*models.Dialog, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: dialog with self for user %d", apperr.ErrValidation, userA)
	}

	var dialog models.Dialog
	err := e.db.Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
		userA, userB, userB, userA).First(&dialog).Error
	if err == nil {
		return &dialog, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	dialog = models.Dialog{User1ID: userA, User2ID: userB}
	if err := e.db.Create(&dialog).Error; err != nil {
		return nil, err
	}
	return &dialog, nil
}

// Dialog loads a dialog by id.
func (e *Engine) Dialog(dialogID uint) (*models.Dialog, error) {
	var dialog models.Dialog
	if err := e.db.First(&dialog, dialogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: dialog %d", apperr.ErrNotFound, dialogID)
		}
		return nil, err
	}
	return &dialog, nil
}

// Messages returns the dialog's messages in stable send order.
func (e *Engine) Messages(dialogID uint) ([]models.Message, error) {
	var messages []models.Message
	err := e.db.Where("dialog_id = ?", dialogID).
		Order("send_date asc, id asc").
		Find(&messages).Error
	return messages, err
}

// AppendMessage appends a message from fromID to the other dialog
// participant and notifies both sides.
func (e *Engine) AppendMessage(dialogID, fromID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message content", apperr.ErrValidation)
	}

	dialog, err := e.Dialog(dialogID)
	if err != nil {
		return nil, err
	}
	toID, err := otherParticipant(dialog, fromID)
	if err != nil {
		return nil, err
	}

	message := models.Message{
		DialogID:   dialogID,
		FromUserID: fromID,
		ToUserID:   toID,
		Content:    content,
		SendDate:   time.Now(),
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		unread, err := unreadDialogCount(tx, toID)
		if err != nil {
			return err
		}
		if _, err := outbox.Enqueue(tx, toID, outbox.KindUnreadMessages,
			UnreadPayload{UnreadDialogs: unread}); err != nil {
			return err
		}

		payload := MessagePayload{
			ID:         message.ID,
			DialogID:   dialogID,
			FromUserID: fromID,
			ToUserID:   toID,
			Content:    content,
			SendDate:   message.SendDate,
		}
		if _, err := outbox.Enqueue(tx, toID, outbox.KindMessageAppended, payload); err != nil {
			return err
		}
		// The sender gets an echo so its other open tabs stay in sync.
		_, err = outbox.Enqueue(tx, fromID, outbox.KindMessageAppended, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead marks every unread message addressed to readerID in the dialog as
// read and returns their ids. Idempotent: a second call returns an empty
// list and enqueues nothing.
func (e *Engine) MarkRead(dialogID, readerID uint) ([]uint, error) {
	dialog, err := e.Dialog(dialogID)
	if err != nil {
		return nil, err
	}
	otherID, err := otherParticipant(dialog, readerID)
	if err != nil {
		return nil, err
	}

	var readIDs []uint
	err = e.db.Transaction(func(tx *gorm.DB) error {
		var unread []models.Message
		if err := tx.Where("dialog_id = ? AND to_user_id = ? AND is_read = ?",
			dialogID, readerID, false).
			Order("send_date asc, id asc").
			Find(&unread).Error; err != nil {
			return err
		}
		if len(unread) == 0 {
			return nil
		}

		readIDs = make([]uint, len(unread))
		for i, m := range unread {
			readIDs[i] = m.ID
		}
		if err := tx.Model(&models.Message{}).
			Where("id IN ?", readIDs).
			Update("is_read", true).Error; err != nil {
			return err
		}

		return e.notifyRead(tx, dialogID, readerID, otherID, readIDs)
	})
	if err != nil {
		return nil, err
	}
	return readIDs, nil
}

// MarkMessageRead marks a single message as read on behalf of its recipient.
// No-op if it was already read.
func (e *Engine) MarkMessageRead(messageID, readerID uint) error {
	var message models.Message
	if err := e.db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: message %d", apperr.ErrNotFound, messageID)
		}
		return err
	}
	if message.ToUserID != readerID {
		return fmt.Errorf("%w: message %d is not addressed to user %d",
			apperr.ErrUnauthorized, messageID, readerID)
	}
	if message.IsRead {
		return nil
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("id = ?", messageID).
			Update("is_read", true).Error; err != nil {
			return err
		}
		return e.notifyRead(tx, message.DialogID, readerID, message.FromUserID, []uint{messageID})
	})
}

// notifyRead tells the sender which messages were read and refreshes the
// reader's own unread badge.
func (e *Engine) notifyRead(tx *gorm.DB, dialogID, readerID, senderID uint, ids []uint) error {
	if _, err := outbox.Enqueue(tx, senderID, outbox.KindMessagesRead, ReadPayload{
		DialogID:   dialogID,
		ReaderID:   readerID,
		MessageIDs: ids,
	}); err != nil {
		return err
	}

	unread, err := unreadDialogCount(tx, readerID)
	if err != nil {
		return err
	}
	_, err = outbox.Enqueue(tx, readerID, outbox.KindUnreadMessages,
		UnreadPayload{UnreadDialogs: unread})
	return err
}

// UnreadCounts maps each sender to the number of unread messages they have
// addressed to the user.
func (e *Engine) UnreadCounts(userID uint) (map[uint]int64, error) {
	type row struct {
		FromUserID uint
		N          int64
	}
	var rows []row
	err := e.db.Model(&models.Message{}).
		Select("from_user_id, count(*) as n").
		Where("to_user_id = ? AND is_read = ?", userID, false).
		Group("from_user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.FromUserID] = r.N
	}
	return counts, nil
}

// UnreadBySender groups the user's unread messages by sender, for dialog
// badge rendering.
func (e *Engine) UnreadBySender(userID uint) (map[uint][]models.Message, error) {
	var unread []models.Message
	err := e.db.Where("to_user_id = ? AND is_read = ?", userID, false).
		Order("send_date asc, id asc").
		Find(&unread).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint][]models.Message)
	for _, m := range unread {
		grouped[m.FromUserID] = append(grouped[m.FromUserID], m)
	}
	return grouped, nil
}

func otherParticipant(dialog *models.Dialog, userID uint) (uint, error) {
	switch userID {
	case dialog.User1ID:
		return dialog.User2ID, nil
	case dialog.User2ID:
		return dialog.User1ID, nil
	default:
		return 0, fmt.Errorf("%w: user %d is not part of dialog %d",
			apperr.ErrUnauthorized, userID, dialog.ID)
	}
}

// unreadDialogCount counts distinct senders with unread messages to the
// user, i.e. the number of dialogs carrying an unread badge.
func unreadDialogCount(tx *gorm.DB, userID uint) (int, error) {
	var n int64
	err := tx.Model(&models.Message{}).
		Where("to_user_id = ? AND is_read = ?", userID, false).
		Distinct("from_user_id").
		Count(&n).Error
	return int(n), err
}
