package models

import "time"

// AuditLog records who changed what. The actor is always passed in
// explicitly by the caller; there is no ambient current user.
type AuditLog struct {
	ID         uint   `gorm:"primaryKey"`
	ActorID    uint   // who performed the action
	EntityType string // ex: "Invoice", "Quote", "PriceRule"
	EntityID   uint
	Action     string // ex: "create", "update", "delete", "convert", "status"
	Detail     string // optional free text
	CreatedAt  time.Time
}
