package approval

import (
	"procflow/bizerror"
	"procflow/directory"
	"procflow/domain"
	"procflow/domain/rule"
	"procflow/event"
	"procflow/idgen"
	"procflow/notify"
	"procflow/persistence"
	"procflow/session"
	"strconv"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

// TemplateSelector is the slice of the template catalog the engine consumes.
type TemplateSelector interface {
	DetailWorkflowTemplate(id types.ID, sec *session.Session) (*domain.WorkflowTemplateDetail, error)
	SelectWorkflow(entityType string, snapshot rule.EntitySnapshot, sec *session.Session) (*domain.WorkflowTemplateDetail, error)
}

type EngineTraits interface {
	StartWorkflow(c *ApprovalCreation, sec *session.Session) (*domain.ApprovalDetail, error)
	AdvanceToNextStep(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error)
	ProcessStepDecision(d *StepDecision, sec *session.Session) (*domain.ApprovalAction, error)
	ApproveStep(actionID types.ID, comments, signatureData string, sec *session.Session) (*domain.ApprovalAction, error)
	RejectStep(actionID types.ID, comments string, sec *session.Session) (*domain.ApprovalAction, error)
	EscalateStep(actionID types.ID, reason string, sec *session.Session) (*EscalationResult, error)

	GetWorkflowStatus(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error)
	GetWorkflowStatusByEntity(entityType string, entityID types.ID, sec *session.Session) (*domain.ApprovalDetail, error)
	GetApprovalProgress(instanceID types.ID, sec *session.Session) (*ProgressReport, error)
	GetPendingApprovals(userID types.ID, sec *session.Session) ([]domain.ApprovalAction, error)

	ResetWorkflow(instanceID types.ID, sec *session.Session) error
}

// Engine drives approval instances through their steps. All mutable state
// lives in the store; the engine itself is stateless and every public
// operation is one transaction.
type Engine struct {
	dataSource *persistence.DataSourceManager
	templates  TemplateSelector
	actors     directory.ActorDirectory
	notifier   notify.NotifierPort

	idWorker *sonyflake.Sonyflake
}

func NewEngine(ds *persistence.DataSourceManager, templates TemplateSelector,
	actors directory.ActorDirectory, notifier notify.NotifierPort) *Engine {
	return &Engine{
		dataSource: ds,
		templates:  templates,
		actors:     actors,
		notifier:   notifier,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

var nonTerminalStatuses = []domain.InstanceStatus{domain.InstancePending, domain.InstanceInProgress}

// sideEffects collect in-transaction outcomes that must only fire after
// commit: port notifications and event handler fan-out.
type sideEffects struct {
	assignments []notify.StepAssignment
	assignees   []types.ID

	decision  *notify.DecisionOutcome
	requester types.ID

	events []*event.EventRecord
}

func (e *Engine) dispatch(fx *sideEffects) {
	for i, assignment := range fx.assignments {
		if err := e.notifier.NotifyAssigned(fx.assignees[i], assignment); err != nil {
			logrus.Warnf("assignment notification for action %d failed: %v", assignment.ActionID, err)
		}
	}
	if fx.decision != nil {
		if err := e.notifier.NotifyDecision(fx.requester, *fx.decision); err != nil {
			logrus.Warnf("decision notification for instance %d failed: %v", fx.decision.InstanceID, err)
		}
	}
	for _, record := range fx.events {
		event.InvokeHandlersFunc(record)
	}
}

func (e *Engine) StartWorkflow(c *ApprovalCreation, sec *session.Session) (*domain.ApprovalDetail, error) {
	db := e.dataSource.GormDB(sec.Context)

	// idempotent start: at most one live instance per entity
	if existing, err := findInstanceByEntity(db, c.EntityType, c.EntityID); err != nil {
		return nil, err
	} else if existing != nil {
		return loadDetail(db, existing.ID)
	}

	var template *domain.WorkflowTemplateDetail
	var err error
	if c.TemplateID != 0 {
		template, err = e.templates.DetailWorkflowTemplate(c.TemplateID, sec)
	} else {
		template, err = e.templates.SelectWorkflow(c.EntityType, c.Snapshot, sec)
	}
	if err != nil {
		return nil, err
	}
	if len(template.Steps) == 0 {
		return nil, bizerror.ErrInvalidState
	}

	now := types.CurrentTimestamp()
	totalHours := 0
	for _, s := range template.Steps {
		totalHours += stepSLAHours(s)
	}

	instance := domain.ApprovalInstance{
		ID:         idgen.NextID(e.idWorker),
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		TemplateID: template.ID,

		Status:           domain.InstancePending,
		CurrentStepIndex: 0,
		TotalSteps:       len(template.Steps),

		SLADeadline: types.Timestamp(now.Time().Add(time.Duration(totalHours) * time.Hour)),
		InitiatorID: sec.Identity.ID,
		CreateTime:  now,
	}

	fx := sideEffects{}
	duplicated := false
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&instance).Error; err != nil {
			if persistence.IsDuplicateEntryError(err) {
				// lost the race against a concurrent start of the same entity
				duplicated = true
				return err
			}
			return err
		}

		for _, s := range template.Steps {
			action := domain.ApprovalAction{
				ID:         idgen.NextID(e.idWorker),
				InstanceID: instance.ID,
				StepID:     s.ID,
				Sequence:   s.Sequence,

				RequiredRole: s.RequiredRole,
				ApproverID:   0,
				Status:       domain.ActionPending,

				SLADeadline: types.Timestamp(now.Time().Add(time.Duration(stepSLAHours(s)) * time.Hour)),
				CreateTime:  now,
			}
			if err := tx.Create(&action).Error; err != nil {
				return err
			}
		}

		record, err := event.CreateEvent("approval_instance", instance.ID,
			c.EntityType+"/"+strconv.FormatUint(uint64(c.EntityID), 10),
			event.CategoryInstanceStarted, &sec.Identity, tx)
		if err != nil {
			return err
		}
		fx.events = append(fx.events, record)

		return e.advance(tx, &instance, sec, &fx)
	})
	if err != nil {
		if duplicated {
			if existing, err2 := findInstanceByEntity(db, c.EntityType, c.EntityID); err2 == nil && existing != nil {
				return loadDetail(db, existing.ID)
			}
		}
		return nil, err
	}

	e.dispatch(&fx)
	return loadDetail(db, instance.ID)
}

func (e *Engine) AdvanceToNextStep(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error) {
	db := e.dataSource.GormDB(sec.Context)

	fx := sideEffects{}
	err := db.Transaction(func(tx *gorm.DB) error {
		instance := domain.ApprovalInstance{}
		if err := tx.Where(&domain.ApprovalInstance{ID: instanceID}).First(&instance).Error; err != nil {
			return err
		}
		if instance.Status.IsTerminal() {
			// terminal exclusivity: nothing changes
			return nil
		}
		return e.advance(tx, &instance, sec, &fx)
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(&fx)
	return loadDetail(db, instanceID)
}

// advance move the instance to its next step, or complete it when every step
// is done. The approver of the step is resolved lazily here, at the moment
// the step becomes current, because the responsible person may have changed
// since the instance was created.
func (e *Engine) advance(tx *gorm.DB, instance *domain.ApprovalInstance, sec *session.Session, fx *sideEffects) error {
	if instance.CurrentStepIndex >= instance.TotalSteps {
		// the sole terminal-success path
		query := tx.Model(&domain.ApprovalInstance{}).
			Where("id = ? AND status IN (?)", instance.ID, nonTerminalStatuses).
			Update("status", domain.InstanceApproved)
		if err := query.Error; err != nil {
			return err
		}
		if query.RowsAffected != 1 {
			return bizerror.ErrConflict
		}
		instance.Status = domain.InstanceApproved
		return nil
	}

	sequence := instance.CurrentStepIndex + 1
	action := domain.ApprovalAction{}
	if err := tx.Where("instance_id = ? AND sequence = ? AND status = ?",
		instance.ID, sequence, domain.ActionPending).
		Order("create_time DESC").First(&action).Error; err != nil {
		return err
	}

	approverID := e.resolveApprover(tx, instance, &action, sec, fx)

	query := tx.Model(&domain.ApprovalAction{}).
		Where("id = ? AND status = ?", action.ID, domain.ActionPending).
		Update("approver_id", approverID)
	if err := query.Error; err != nil {
		return err
	}
	if query.RowsAffected != 1 {
		return bizerror.ErrConflict
	}
	action.ApproverID = approverID

	query = tx.Model(&domain.ApprovalInstance{}).
		Where("id = ? AND current_step_index = ? AND status IN (?)",
			instance.ID, instance.CurrentStepIndex, nonTerminalStatuses).
		Update(map[string]interface{}{"current_step_index": sequence, "status": domain.InstanceInProgress})
	if err := query.Error; err != nil {
		return err
	}
	if query.RowsAffected != 1 {
		return bizerror.ErrConflict
	}
	instance.CurrentStepIndex = sequence
	instance.Status = domain.InstanceInProgress

	record, err := event.CreateEvent("approval_action", action.ID,
		"step "+strconv.Itoa(sequence)+" assigned", event.CategoryApproverAssigned, &sec.Identity, tx)
	if err != nil {
		return err
	}
	fx.events = append(fx.events, record)

	fx.assignments = append(fx.assignments, notify.StepAssignment{
		InstanceID: instance.ID,
		ActionID:   action.ID,
		EntityType: instance.EntityType,
		EntityID:   instance.EntityID,

		Sequence:     sequence,
		RequiredRole: action.RequiredRole,
		SLADeadline:  action.SLADeadline,
	})
	fx.assignees = append(fx.assignees, approverID)
	return nil
}

// resolveApprover ask the actor directory for an active holder of the step
// role. Directory failure or an empty role never stalls the workflow: the
// triggering actor becomes the approver and the fallback is recorded so
// operators can detect under-provisioned roles.
func (e *Engine) resolveApprover(tx *gorm.DB, instance *domain.ApprovalInstance,
	action *domain.ApprovalAction, sec *session.Session, fx *sideEffects) types.ID {

	user, err := e.actors.FindActiveUserWithRole(action.RequiredRole)
	if err == nil && user != nil {
		return user.ID
	}
	if err != nil {
		logrus.Warnf("actor directory failed for role %s on action %d: %v", action.RequiredRole, action.ID, err)
	} else {
		logrus.Warnf("no active user holds role %s, action %d falls back to actor %d",
			action.RequiredRole, action.ID, sec.Identity.ID)
	}

	record, eventErr := event.CreateEvent("approval_action", action.ID,
		"fallback approver for role "+action.RequiredRole.String(),
		event.CategoryApproverFallbackUsed, &sec.Identity, tx)
	if eventErr == nil {
		fx.events = append(fx.events, record)
	} else {
		logrus.Warnf("failed to record fallback event for action %d: %v", action.ID, eventErr)
	}
	return sec.Identity.ID
}

func stepSLAHours(s domain.StepDefinition) int {
	if s.SLAHours <= 0 {
		return domain.DefaultStepSLAHours
	}
	return s.SLAHours
}

func findInstanceByEntity(db *gorm.DB, entityType string, entityID types.ID) (*domain.ApprovalInstance, error) {
	instance := domain.ApprovalInstance{}
	err := db.Where(&domain.ApprovalInstance{EntityType: entityType, EntityID: entityID}).First(&instance).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func loadDetail(db *gorm.DB, instanceID types.ID) (*domain.ApprovalDetail, error) {
	detail := domain.ApprovalDetail{}
	if err := db.Where(&domain.ApprovalInstance{ID: instanceID}).First(&detail.ApprovalInstance).Error; err != nil {
		return nil, err
	}
	if err := db.Where("instance_id = ?", instanceID).
		Order("sequence ASC, create_time ASC").Find(&detail.Actions).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}
