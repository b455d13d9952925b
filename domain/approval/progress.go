package approval

import (
	"math"
	"procflow/bizerror"
	"procflow/domain"
	"procflow/session"

	"github.com/fundwit/go-commons/types"
)

func (e *Engine) GetWorkflowStatus(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error) {
	db := e.dataSource.GormDB(sec.Context)
	return loadDetail(db, instanceID)
}

func (e *Engine) GetWorkflowStatusByEntity(entityType string, entityID types.ID, sec *session.Session) (*domain.ApprovalDetail, error) {
	db := e.dataSource.GormDB(sec.Context)
	instance, err := findInstanceByEntity(db, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, bizerror.ErrNotFound
	}
	return loadDetail(db, instance.ID)
}

func (e *Engine) GetApprovalProgress(instanceID types.ID, sec *session.Session) (*ProgressReport, error) {
	db := e.dataSource.GormDB(sec.Context)
	detail, err := loadDetail(db, instanceID)
	if err != nil {
		return nil, err
	}

	report := ProgressReport{
		InstanceID: detail.ID,
		Status:     detail.Status,

		CurrentStep: detail.CurrentStepIndex,
		TotalSteps:  detail.TotalSteps,

		History: detail.Actions,
	}

	now := types.CurrentTimestamp()
	for _, latest := range detail.CurrentActions() {
		if latest.Status == domain.ActionApproved || latest.Status == domain.ActionEscalated {
			report.CompletedSteps++
		}
	}
	for _, a := range detail.Actions {
		if a.Status != domain.ActionPending {
			continue
		}
		if a.SLADeadline.Time().Before(now.Time()) {
			report.IsBreached = true
		}
		if report.NextDeadline == nil || a.SLADeadline.Time().Before(report.NextDeadline.Time()) {
			deadline := a.SLADeadline
			report.NextDeadline = &deadline
		}
	}

	if report.TotalSteps > 0 {
		report.CompletionPercentage = int(math.Round(float64(report.CompletedSteps) / float64(report.TotalSteps) * 100))
	}
	return &report, nil
}

// FindBreachedActions list PENDING actions past their deadline on live
// instances, most overdue first.
func (e *Engine) FindBreachedActions(limit int, sec *session.Session) ([]domain.ApprovalAction, error) {
	db := e.dataSource.GormDB(sec.Context)

	var actions []domain.ApprovalAction
	if err := db.Where("status = ? AND sla_deadline < ?", domain.ActionPending, types.CurrentTimestamp().Time()).
		Where("instance_id IN (SELECT id FROM approval_instances WHERE status IN (?))", nonTerminalStatuses).
		Order("sla_deadline ASC").Limit(limit).Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

// LoadApprovals page through every instance with its actions, for index
// rebuilds.
func (e *Engine) LoadApprovals(page, size int, sec *session.Session) ([]domain.ApprovalDetail, error) {
	db := e.dataSource.GormDB(sec.Context)

	var instances []domain.ApprovalInstance
	if err := db.Order("id ASC").Offset((page - 1) * size).Limit(size).
		Find(&instances).Error; err != nil {
		return nil, err
	}

	details := make([]domain.ApprovalDetail, 0, len(instances))
	for _, instance := range instances {
		detail, err := loadDetail(db, instance.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// InstanceIDOfAction resolve the owning instance of an action.
func (e *Engine) InstanceIDOfAction(actionID types.ID, sec *session.Session) (types.ID, error) {
	db := e.dataSource.GormDB(sec.Context)
	action := domain.ApprovalAction{}
	if err := db.Where(&domain.ApprovalAction{ID: actionID}).First(&action).Error; err != nil {
		return 0, err
	}
	return action.InstanceID, nil
}

// GetPendingApprovals the open work queue of one approver, most urgent first.
// Actions of terminated instances are excluded.
func (e *Engine) GetPendingApprovals(userID types.ID, sec *session.Session) ([]domain.ApprovalAction, error) {
	db := e.dataSource.GormDB(sec.Context)

	var actions []domain.ApprovalAction
	if err := db.Where("approver_id = ? AND status = ?", userID, domain.ActionPending).
		Where("instance_id IN (SELECT id FROM approval_instances WHERE status IN (?))", nonTerminalStatuses).
		Order("sla_deadline ASC").Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}
