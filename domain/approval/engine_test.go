package approval_test

import (
	"context"
	"procflow/bizerror"
	"procflow/directory"
	"procflow/domain"
	"procflow/domain/approval"
	"procflow/domain/flow"
	"procflow/domain/rule"
	"procflow/event"
	"procflow/notify"
	"procflow/testinfra"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

type fixedDirectory struct {
	users map[domain.Role]*directory.UserRef
	err   error
}

func (d *fixedDirectory) FindActiveUserWithRole(role domain.Role) (*directory.UserRef, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users[role], nil
}

type recordingNotifier struct {
	assignments []notify.StepAssignment
	assignees   []types.ID
	decisions   []notify.DecisionOutcome
}

func (n *recordingNotifier) NotifyAssigned(userID types.ID, assignment notify.StepAssignment) error {
	n.assignments = append(n.assignments, assignment)
	n.assignees = append(n.assignees, userID)
	return nil
}

func (n *recordingNotifier) NotifyDecision(requesterID types.ID, outcome notify.DecisionOutcome) error {
	n.decisions = append(n.decisions, outcome)
	return nil
}

type fixture struct {
	db        *testinfra.TestDatabase
	engine    *approval.Engine
	templates *flow.TemplateManager
	actors    *fixedDirectory
	notifier  *recordingNotifier
}

const (
	officerID  = types.ID(201)
	managerID  = types.ID(202)
	directorID = types.ID(203)
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) *fixture {
	db := testinfra.StartMysqlTestDatabase("procflow")
	assert.Nil(t, db.DS.GormDB(context.Background()).AutoMigrate(
		&domain.WorkflowTemplate{}, &domain.StepDefinition{}, &domain.TemplateCondition{},
		&domain.ApprovalInstance{}, &domain.ApprovalAction{}, &event.EventRecord{}).Error)
	*testDatabase = db

	actors := &fixedDirectory{users: map[domain.Role]*directory.UserRef{
		domain.RoleOfficer:  {ID: officerID, Name: "olive"},
		domain.RoleManager:  {ID: managerID, Name: "martin"},
		domain.RoleDirector: {ID: directorID, Name: "diana"},
	}}
	notifier := &recordingNotifier{}
	templates := flow.NewTemplateManager(db.DS)
	return &fixture{
		db:        db,
		engine:    approval.NewEngine(db.DS, templates, actors, notifier),
		templates: templates,
		actors:    actors,
		notifier:  notifier,
	}
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

var purchaseTemplate = &flow.TemplateCreation{
	Name:       "high value purchase",
	EntityType: domain.EntityTypePurchaseOrder,
	Steps: []flow.StepCreating{
		{Sequence: 1, RequiredRole: domain.RoleOfficer, IsRequired: true, SLAHours: 24},
		{Sequence: 2, RequiredRole: domain.RoleManager, IsRequired: true, SLAHours: 48},
		{Sequence: 3, RequiredRole: domain.RoleDirector, IsRequired: true, SLAHours: 72},
	},
	Conditions: []rule.Condition{{Kind: rule.KindValueThreshold, Threshold: 50000}},
}

func startPurchaseApproval(t *testing.T, f *fixture, initiatorID, entityID types.ID) *domain.ApprovalDetail {
	detail, err := f.engine.StartWorkflow(&approval.ApprovalCreation{
		EntityType: domain.EntityTypePurchaseOrder,
		EntityID:   entityID,
		Snapshot:   rule.EntitySnapshot{Value: 60000},
	}, testinfra.BuildSession(initiatorID, "requester", domain.RoleOfficer))
	assert.Nil(t, err)
	return detail
}

func createTemplate(t *testing.T, f *fixture) *domain.WorkflowTemplateDetail {
	template, err := f.templates.CreateWorkflowTemplate(purchaseTemplate,
		testinfra.BuildSession(1, "admin", domain.RoleDirector))
	assert.Nil(t, err)
	return template
}

func eventCategories(f *fixture) []event.Category {
	var records []event.EventRecord
	_ = f.db.DS.GormDB(context.Background()).Order("id ASC").Find(&records).Error
	categories := make([]event.Category, 0, len(records))
	for _, r := range records {
		categories = append(categories, r.EventCategory)
	}
	return categories
}

func TestStartWorkflow(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should create the instance with all actions and assign the first step", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)
		createTemplate(t, f)

		begin := time.Now()
		detail := startPurchaseApproval(t, f, 100, 1000)

		Expect(detail.Status).To(Equal(domain.InstanceInProgress))
		Expect(detail.CurrentStepIndex).To(Equal(1))
		Expect(detail.TotalSteps).To(Equal(3))
		Expect(detail.InitiatorID).To(Equal(types.ID(100)))
		Expect(len(detail.Actions)).To(Equal(3))

		Expect(detail.Actions[0].Status).To(Equal(domain.ActionPending))
		Expect(detail.Actions[0].ApproverID).To(Equal(officerID))
		Expect(detail.Actions[1].ApproverID).To(BeZero())
		Expect(detail.Actions[2].ApproverID).To(BeZero())

		// aggregate turnaround budget is the sum of the step budgets
		total := detail.SLADeadline.Time().Sub(begin)
		Expect(total > 143*time.Hour).To(BeTrue())
		Expect(total < 145*time.Hour).To(BeTrue())

		first := detail.Actions[0].SLADeadline.Time().Sub(begin)
		Expect(first > 23*time.Hour).To(BeTrue())
		Expect(first < 25*time.Hour).To(BeTrue())

		Expect(len(f.notifier.assignments)).To(Equal(1))
		Expect(f.notifier.assignees[0]).To(Equal(officerID))
		Expect(f.notifier.assignments[0].Sequence).To(Equal(1))
		Expect(f.notifier.assignments[0].RequiredRole).To(Equal(domain.RoleOfficer))

		Expect(eventCategories(f)).To(Equal([]event.Category{
			event.CategoryInstanceStarted, event.CategoryApproverAssigned,
		}))
	})

	t.Run("should return the existing instance on repeated start", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)
		createTemplate(t, f)

		first := startPurchaseApproval(t, f, 100, 1000)
		second := startPurchaseApproval(t, f, 101, 1000)

		Expect(second.ID).To(Equal(first.ID))

		var count int
		Expect(f.db.DS.GormDB(context.Background()).Model(&domain.ApprovalInstance{}).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(1))
	})

	t.Run("should use the pinned template when one is given", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)
		template := createTemplate(t, f)

		detail, err := f.engine.StartWorkflow(&approval.ApprovalCreation{
			EntityType: domain.EntityTypePurchaseOrder,
			EntityID:   types.ID(1000),
			TemplateID: template.ID,
		}, testinfra.BuildSession(100, "requester", domain.RoleOfficer))
		Expect(err).To(BeNil())
		Expect(detail.TemplateID).To(Equal(template.ID))
	})

	t.Run("should fall back to the default template when no condition matches", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)
		createTemplate(t, f)

		detail, err := f.engine.StartWorkflow(&approval.ApprovalCreation{
			EntityType: domain.EntityTypePurchaseOrder,
			EntityID:   types.ID(1000),
			Snapshot:   rule.EntitySnapshot{Value: 100},
		}, testinfra.BuildSession(100, "requester", domain.RoleOfficer))
		Expect(err).To(BeNil())
		Expect(detail.TotalSteps).To(Equal(3))

		template, err := f.templates.DetailWorkflowTemplate(detail.TemplateID,
			testinfra.BuildSession(1, "admin", domain.RoleDirector))
		Expect(err).To(BeNil())
		Expect(template.Name).To(Equal(flow.DefaultTemplateName(domain.EntityTypePurchaseOrder)))
	})

	t.Run("should refuse a template without steps", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)

		empty := domain.WorkflowTemplate{
			ID: types.ID(77), Name: "empty", EntityType: domain.EntityTypePurchaseOrder,
			Active: true, CreateTime: time.Now(),
		}
		Expect(f.db.DS.GormDB(context.Background()).Create(&empty).Error).To(BeNil())

		detail, err := f.engine.StartWorkflow(&approval.ApprovalCreation{
			EntityType: domain.EntityTypePurchaseOrder,
			EntityID:   types.ID(1000),
			TemplateID: empty.ID,
		}, testinfra.BuildSession(100, "requester", domain.RoleOfficer))
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})

	t.Run("should fall back to the triggering actor when the role has no holder", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)
		createTemplate(t, f)
		f.actors.users = map[domain.Role]*directory.UserRef{}

		detail := startPurchaseApproval(t, f, 100, 1000)
		Expect(detail.Actions[0].ApproverID).To(Equal(types.ID(100)))

		Expect(eventCategories(f)).To(ContainElement(event.CategoryApproverFallbackUsed))
	})
}

func TestAdvanceToNextStep(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should not change a terminated instance", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)
		createTemplate(t, f)

		detail := startPurchaseApproval(t, f, 100, 1000)
		db := f.db.DS.GormDB(context.Background())
		Expect(db.Model(&domain.ApprovalInstance{}).Where("id = ?", detail.ID).
			Update("status", domain.InstanceRejected).Error).To(BeNil())

		after, err := f.engine.AdvanceToNextStep(detail.ID, testinfra.BuildSession(100, "requester", domain.RoleOfficer))
		Expect(err).To(BeNil())
		Expect(after.Status).To(Equal(domain.InstanceRejected))
		Expect(after.CurrentStepIndex).To(Equal(detail.CurrentStepIndex))
	})

	t.Run("should report a missing instance", func(t *testing.T) {
		defer teardown(t, testDatabase)
		f := setup(t, &testDatabase)

		_, err := f.engine.AdvanceToNextStep(types.ID(404), testinfra.BuildSession(100, "requester", domain.RoleOfficer))
		Expect(err).To(Equal(gorm.ErrRecordNotFound))
	})
}
