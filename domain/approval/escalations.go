package approval

import (
	"procflow/bizerror"
	"procflow/domain"
	"procflow/event"
	"procflow/idgen"
	"procflow/notify"
	"procflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// EscalationSLAHours fresh, shorter budget for the replacement action.
const EscalationSLAHours = 24

// EscalateStep re-route a stalled step to the next higher authority. The old
// action is closed as ESCALATED and kept for history; a new PENDING action is
// created at the same sequence position. The instance stays logically at the
// same step until the new action is decided.
func (e *Engine) EscalateStep(actionID types.ID, reason string, sec *session.Session) (*EscalationResult, error) {
	db := e.dataSource.GormDB(sec.Context)

	result := EscalationResult{}
	fx := sideEffects{}
	err := db.Transaction(func(tx *gorm.DB) error {
		action := domain.ApprovalAction{}
		if err := tx.Where(&domain.ApprovalAction{ID: actionID}).First(&action).Error; err != nil {
			return err
		}
		if action.Status.IsDecided() {
			return bizerror.ErrInvalidState
		}

		instance := domain.ApprovalInstance{}
		if err := tx.Where(&domain.ApprovalInstance{ID: action.InstanceID}).First(&instance).Error; err != nil {
			return err
		}
		if instance.Status.IsTerminal() {
			return bizerror.ErrInvalidState
		}

		now := types.CurrentTimestamp()
		query := tx.Model(&domain.ApprovalAction{}).
			Where("id = ? AND status = ?", action.ID, domain.ActionPending).
			Update(map[string]interface{}{
				"status":       domain.ActionEscalated,
				"escalated_at": now.Time(),
				"comments":     reason,
			})
		if err := query.Error; err != nil {
			return err
		}
		if query.RowsAffected != 1 {
			return bizerror.ErrConflict
		}
		action.Status = domain.ActionEscalated
		action.EscalatedAt = &now
		action.Comments = reason

		target := domain.EscalationTarget(action.RequiredRole)
		newAction := domain.ApprovalAction{
			ID:         idgen.NextID(e.idWorker),
			InstanceID: action.InstanceID,
			StepID:     action.StepID,
			Sequence:   action.Sequence,

			RequiredRole: target,
			Status:       domain.ActionPending,

			SLADeadline: types.Timestamp(now.Time().Add(EscalationSLAHours * time.Hour)),
			CreateTime:  now,
		}
		newAction.ApproverID = e.resolveApprover(tx, &instance, &newAction, sec, &fx)
		if err := tx.Create(&newAction).Error; err != nil {
			return err
		}

		record, err := event.CreateEvent("approval_action", action.ID,
			"escalated to "+target.String()+": "+reason,
			event.CategoryStepEscalated, &sec.Identity, tx)
		if err != nil {
			return err
		}
		fx.events = append(fx.events, record)

		fx.assignments = append(fx.assignments, notify.StepAssignment{
			InstanceID: instance.ID,
			ActionID:   newAction.ID,
			EntityType: instance.EntityType,
			EntityID:   instance.EntityID,

			Sequence:     newAction.Sequence,
			RequiredRole: target,
			SLADeadline:  newAction.SLADeadline,
		})
		fx.assignees = append(fx.assignees, newAction.ApproverID)

		result = EscalationResult{EscalatedAction: action, NewAction: newAction}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(&fx)
	return &result, nil
}
