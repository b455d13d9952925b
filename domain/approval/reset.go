package approval

import (
	"procflow/bizerror"
	"procflow/domain"
	"procflow/event"
	"procflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// ResetWorkflow wipe a terminated instance so the entity can be routed again.
// This cascade is the only path that ever deletes approval actions.
func (e *Engine) ResetWorkflow(instanceID types.ID, sec *session.Session) error {
	if sec.Identity.Role != domain.RoleDirector {
		return bizerror.ErrForbidden
	}

	db := e.dataSource.GormDB(sec.Context)
	fx := sideEffects{}
	err := db.Transaction(func(tx *gorm.DB) error {
		instance := domain.ApprovalInstance{}
		if err := tx.Where(&domain.ApprovalInstance{ID: instanceID}).First(&instance).Error; err != nil {
			return err
		}
		if !instance.Status.IsTerminal() {
			return bizerror.ErrInvalidState
		}

		if err := tx.Model(&domain.ApprovalAction{}).Where("instance_id = ?", instanceID).
			Delete(&domain.ApprovalAction{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.ApprovalInstance{}).
			Delete(&domain.ApprovalInstance{ID: instanceID}).Error; err != nil {
			return err
		}

		record, err := event.CreateEvent("approval_instance", instanceID,
			"instance reset", event.CategoryInstanceReset, &sec.Identity, tx)
		if err != nil {
			return err
		}
		fx.events = append(fx.events, record)
		return nil
	})
	if err != nil {
		return err
	}

	e.dispatch(&fx)
	return nil
}
