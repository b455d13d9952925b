package approval

import (
	"procflow/bizerror"
	"procflow/domain"
	"procflow/event"
	"procflow/notify"
	"procflow/session"
	"procflow/signatures"
	"strconv"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// ProcessStepDecision record an approver's decision on the current step.
// Only the resolved approver may decide; there is no delegation. Approval
// advances the instance, rejection terminates it immediately.
func (e *Engine) ProcessStepDecision(d *StepDecision, sec *session.Session) (*domain.ApprovalAction, error) {
	if d.Decision != domain.ActionApproved && d.Decision != domain.ActionRejected {
		return nil, &bizerror.ErrBadParam{}
	}

	db := e.dataSource.GormDB(sec.Context)

	result := domain.ApprovalAction{}
	fx := sideEffects{}
	err := db.Transaction(func(tx *gorm.DB) error {
		action := domain.ApprovalAction{}
		if err := tx.Where(&domain.ApprovalAction{ID: d.ActionID}).First(&action).Error; err != nil {
			return err
		}
		if action.ApproverID == 0 || action.ApproverID != sec.Identity.ID {
			return bizerror.ErrForbidden
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
		updates := map[string]interface{}{
			"status":   d.Decision,
			"comments": d.Comments,
		}
		if d.Decision == domain.ActionApproved {
			updates["signed_at"] = now.Time()
			if d.SignatureData != "" {
				updates["signature_data"] = d.SignatureData
			}
		}
		query := tx.Model(&domain.ApprovalAction{}).
			Where("id = ? AND status = ?", action.ID, domain.ActionPending).
			Update(updates)
		if err := query.Error; err != nil {
			return err
		}
		if query.RowsAffected != 1 {
			// a concurrent decision on the same step won
			return bizerror.ErrConflict
		}

		action.Status = d.Decision
		action.Comments = d.Comments
		if d.Decision == domain.ActionApproved {
			action.SignedAt = &now
			if d.SignatureData != "" {
				action.SignatureData = d.SignatureData
			}
		}
		result = action

		record, err := event.CreateEvent("approval_action", action.ID,
			"step "+strconv.Itoa(action.Sequence)+" "+string(d.Decision),
			event.CategoryDecisionRecorded, &sec.Identity, tx)
		if err != nil {
			return err
		}
		fx.events = append(fx.events, record)

		if d.Decision == domain.ActionApproved {
			if err := e.advance(tx, &instance, sec, &fx); err != nil {
				return err
			}
		} else {
			// rejection is terminal for the whole instance, remaining steps
			// never execute
			query := tx.Model(&domain.ApprovalInstance{}).
				Where("id = ? AND status IN (?)", instance.ID, nonTerminalStatuses).
				Update("status", domain.InstanceRejected)
			if err := query.Error; err != nil {
				return err
			}
			if query.RowsAffected != 1 {
				return bizerror.ErrConflict
			}
			instance.Status = domain.InstanceRejected
		}

		fx.decision = &notify.DecisionOutcome{
			InstanceID: instance.ID,
			EntityType: instance.EntityType,
			EntityID:   instance.EntityID,
			Sequence:   action.Sequence,
			Decision:   d.Decision,
			Comments:   d.Comments,
		}
		fx.requester = instance.InitiatorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(&fx)

	if result.Status == domain.ActionApproved && result.SignatureData != "" {
		if err := signatures.ArchiveSignatureFunc(result.ID, result.SignatureData); err != nil {
			logrus.Warnf("signature archival for action %d failed: %v", result.ID, err)
		}
	}
	return &result, nil
}

// ApproveStep / RejectStep are the decision entry points of the HTTP surface.

func (e *Engine) ApproveStep(actionID types.ID, comments, signatureData string, sec *session.Session) (*domain.ApprovalAction, error) {
	return e.ProcessStepDecision(&StepDecision{
		ActionID: actionID, Decision: domain.ActionApproved,
		Comments: comments, SignatureData: signatureData,
	}, sec)
}

func (e *Engine) RejectStep(actionID types.ID, comments string, sec *session.Session) (*domain.ApprovalAction, error) {
	return e.ProcessStepDecision(&StepDecision{
		ActionID: actionID, Decision: domain.ActionRejected, Comments: comments,
	}, sec)
}
