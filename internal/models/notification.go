package models

// Notification is a durable, timestamp-ordered event record awaiting client
// pickup. Rows are append-only and deleted once the owning client has polled
// past their timestamp.
type Notification struct {
	ID     uint   `gorm:"primaryKey"`
	UserID uint   `gorm:"not null;index"`
	Kind   string `gorm:"size:64;not null;index"`

	// Timestamp doubles as the ordering key and the poll cursor.
	// Stored as fractional unix seconds.
	Timestamp float64 `gorm:"not null;index"`
	Payload   string

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}
