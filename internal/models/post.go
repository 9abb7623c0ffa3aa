package models

import "gorm.io/gorm"

// Post represents a post on a user's wall.
type Post struct {
	gorm.Model
	UserID    uint   `gorm:"not null;index"`
	Title     string `gorm:"size:255;not null"`
	Content   string `gorm:"not null"`
	ImageName string `gorm:"size:64"`

	User  User       `gorm:"foreignKey:UserID"`
	Tags  []*Tag     `gorm:"many2many:post_tags;"`
	Rates []PostRate `gorm:"foreignKey:PostID"`
}

// Tag represents a post tag (e.g., "music", "travel").
type Tag struct {
	gorm.Model
	Name string `gorm:"size:100;unique;not null"`
}

// PostRate is a single user's +1/-1 vote on a post.
// The primary key is a composite of (PostID, UserID) to ensure uniqueness.
type PostRate struct {
	PostID uint `gorm:"primaryKey"`
	UserID uint `gorm:"primaryKey"`
	Value  int  `gorm:"not null"` // +1 or -1

	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;"`
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}
