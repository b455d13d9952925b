package flow

import (
	"procflow/domain"
	"procflow/idgen"
	"procflow/session"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
)

type defaultStep struct {
	Role     domain.Role
	SLAHours int
}

// Built-in default templates, one per entity type. They carry no selection
// conditions, so they never win first-match; the selector reaches them only
// through the fallback path.
var defaultTemplateSteps = map[string][]defaultStep{
	domain.EntityTypeVendor:        {{domain.RoleOfficer, 48}, {domain.RoleManager, 48}, {domain.RoleDirector, 72}},
	domain.EntityTypeRFQ:           {{domain.RoleOfficer, 24}, {domain.RoleManager, 48}},
	domain.EntityTypeContract:      {{domain.RoleOfficer, 48}, {domain.RoleManager, 72}, {domain.RoleDirector, 96}},
	domain.EntityTypePurchaseOrder: {{domain.RoleOfficer, 24}, {domain.RoleManager, 48}, {domain.RoleDirector, 72}},
	domain.EntityTypeDocument:      {{domain.RoleOfficer, 24}, {domain.RoleManager, 48}},
}

var genericDefaultSteps = []defaultStep{{domain.RoleOfficer, domain.DefaultStepSLAHours}, {domain.RoleManager, domain.DefaultStepSLAHours}}

func DefaultTemplateName(entityType string) string {
	return "default-" + strings.ToLower(entityType)
}

// EnsureDefaultTemplates seed the built-in default template of every entity
// type that does not have one yet. Safe to call repeatedly.
func (m *TemplateManager) EnsureDefaultTemplates(sec *session.Session) error {
	db := m.dataSource.GormDB(sec.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		for entityType := range defaultTemplateSteps {
			if _, err := m.ensureDefaultTemplate(tx, entityType); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *TemplateManager) ensureDefaultTemplate(tx *gorm.DB, entityType string) (*domain.WorkflowTemplateDetail, error) {
	name := DefaultTemplateName(entityType)

	existing := domain.WorkflowTemplate{}
	err := tx.Where(&domain.WorkflowTemplate{Name: name, EntityType: entityType}).First(&existing).Error
	if err == nil {
		detail := domain.WorkflowTemplateDetail{}
		if err := loadTemplateDetail(tx, existing.ID, &detail); err != nil {
			return nil, err
		}
		return &detail, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	steps, found := defaultTemplateSteps[entityType]
	if !found {
		steps = genericDefaultSteps
	}

	now := time.Now().Round(time.Millisecond)
	detail := domain.WorkflowTemplateDetail{
		WorkflowTemplate: domain.WorkflowTemplate{
			ID:         idgen.NextID(m.idWorker),
			Name:       name,
			EntityType: entityType,
			Active:     true,
			CreateTime: now,
		},
	}
	if err := tx.Create(&detail.WorkflowTemplate).Error; err != nil {
		return nil, err
	}
	for idx, s := range steps {
		step := domain.StepDefinition{
			ID:         idgen.NextID(m.idWorker),
			TemplateID: detail.ID,

			Sequence:     idx + 1,
			RequiredRole: s.Role,
			IsRequired:   true,
			SLAHours:     s.SLAHours,

			CreateTime: now,
		}
		if err := tx.Create(&step).Error; err != nil {
			return nil, err
		}
		detail.Steps = append(detail.Steps, step)
	}
	return &detail, nil
}
