package flow

import (
	"procflow/domain"
	"procflow/domain/rule"
	"procflow/session"

	"github.com/jinzhu/gorm"
)

// SelectWorkflow pick the applicable template for an entity: active templates
// of the entity type are evaluated newest-first and the first template with at
// least one matching condition wins. When nothing matches, the built-in
// default template of the entity type applies; selection never fails as long
// as the store is reachable.
func (m *TemplateManager) SelectWorkflow(entityType string, snapshot rule.EntitySnapshot, sec *session.Session) (*domain.WorkflowTemplateDetail, error) {
	var selected *domain.WorkflowTemplateDetail

	db := m.dataSource.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		candidates, err := m.activeTemplates(tx, entityType)
		if err != nil {
			return err
		}

		for _, candidate := range candidates {
			detail := domain.WorkflowTemplateDetail{}
			if err := loadTemplateDetail(tx, candidate.ID, &detail); err != nil {
				return err
			}
			if rule.AnyMatch(detail.Conditions, snapshot) {
				selected = &detail
				return nil
			}
		}

		fallback, err := m.ensureDefaultTemplate(tx, entityType)
		if err != nil {
			return err
		}
		selected = fallback
		return nil
	})
	if err != nil {
		return nil, err
	}
	return selected, nil
}

func (m *TemplateManager) activeTemplates(tx *gorm.DB, entityType string) ([]domain.WorkflowTemplate, error) {
	if cached, found := m.activeCache.Get(entityType); found {
		if templates, ok := cached.([]domain.WorkflowTemplate); ok {
			return templates, nil
		}
	}

	var templates []domain.WorkflowTemplate
	if err := tx.Where(domain.WorkflowTemplate{EntityType: entityType, Active: true}).
		Order("create_time DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	m.activeCache.SetDefault(entityType, templates)
	return templates, nil
}
