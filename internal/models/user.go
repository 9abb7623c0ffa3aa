package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user in the system.
type User struct {
	gorm.Model
	Nickname     string `gorm:"size:255;not null;index"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`

	// Optional profile fields.
	Status    string `gorm:"size:255"`
	AboutMe   string
	ImageName string `gorm:"size:64"`

	LastSeen time.Time
}
