package models

import "time"

// FriendshipOffer is a directed, pending friend request.
// At most one unresolved offer may exist per ordered (from, to) pair, and an
// offer never coexists with a Friend row for the same two users.
type FriendshipOffer struct {
	ID         uint `gorm:"primaryKey"`
	FromUserID uint `gorm:"not null;index:idx_offer_pair"`
	ToUserID   uint `gorm:"not null;index:idx_offer_pair"`

	// Answered is set once the target has chosen to leave the sender as a
	// subscriber instead of accepting. Unfriending also creates a reversed,
	// pre-answered offer so the removed party can re-request later.
	Answered  bool `gorm:"not null;default:false"`
	CreatedAt time.Time

	FromUser User `gorm:"foreignKey:FromUserID;references:ID;constraint:OnDelete:CASCADE;"`
	ToUser   User `gorm:"foreignKey:ToUserID;references:ID;constraint:OnDelete:CASCADE;"`
}

// Friend is an undirected friendship edge, one row per unordered pair.
type Friend struct {
	ID        uint `gorm:"primaryKey"`
	User1ID   uint `gorm:"not null;index:idx_friend_pair"`
	User2ID   uint `gorm:"not null;index:idx_friend_pair"`
	CreatedAt time.Time

	User1 User `gorm:"foreignKey:User1ID;references:ID;constraint:OnDelete:CASCADE;"`
	User2 User `gorm:"foreignKey:User2ID;references:ID;constraint:OnDelete:CASCADE;"`
}
