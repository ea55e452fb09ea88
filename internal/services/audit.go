package services

import (
	"gorm.io/gorm"

	"printbill/internal/models"
)

// writeAudit records a mutation inside the caller's transaction. Audit rows
// ride along with the business write, so a rollback removes them too.
func writeAudit(tx *gorm.DB, actorID uint, entityType string, entityID uint, action, detail string) error {
	return tx.Create(&models.AuditLog{
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
	}).Error
}
