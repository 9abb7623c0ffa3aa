package handler

import (
	"sociogram/backend/internal/identity"
	"sociogram/backend/internal/messaging"
	"sociogram/backend/internal/relations"

	"gorm.io/gorm"
)

// Engines used by the handlers, wired once at startup.
var (
	Identity  *identity.Store
	Relations *relations.Engine
	Messaging *messaging.Engine
)

// Init wires the handler package to its engines.
func Init(db *gorm.DB) {
	Identity = identity.New(db)
	Relations = relations.New(db)
	Messaging = messaging.New(db)
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}
