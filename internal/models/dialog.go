package models

import "time"

// Dialog is the message thread between exactly two users. One row per
// unordered pair, created lazily on first message or view, never destroyed.
type Dialog struct {
	ID        uint `gorm:"primaryKey"`
	User1ID   uint `gorm:"not null;index:idx_dialog_pair"`
	User2ID   uint `gorm:"not null;index:idx_dialog_pair"`
	CreatedAt time.Time

	User1 User `gorm:"foreignKey:User1ID;references:ID;constraint:OnDelete:CASCADE;"`
	User2 User `gorm:"foreignKey:User2ID;references:ID;constraint:OnDelete:CASCADE;"`
}

// Message belongs to exactly one dialog. Immutable once created except for
// IsRead, which only ever flips false -> true.
type Message struct {
	ID         uint   `gorm:"primaryKey"`
	DialogID   uint   `gorm:"not null;index"`
	FromUserID uint   `gorm:"not null;index"`
	ToUserID   uint   `gorm:"not null;index"`
	Content    string `gorm:"not null"`

	SendDate time.Time `gorm:"not null;index"`
	IsRead   bool      `gorm:"not null;default:false"`

	Dialog   Dialog `gorm:"foreignKey:DialogID"`
	FromUser User   `gorm:"foreignKey:FromUserID"`
	ToUser   User   `gorm:"foreignKey:ToUserID"`
}

// Preview returns the message content abbreviated to at most length runes,
// for dialog-list cards.
func (m *Message) Preview(length int) string {
	runes := []rune(m.Content)
	if len(runes) <= length {
		return m.Content
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}
