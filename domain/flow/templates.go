package flow

import (
	"procflow/bizerror"
	"procflow/domain"
	"procflow/domain/rule"
	"procflow/idgen"
	"procflow/persistence"
	"procflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
	"github.com/sony/sonyflake"
)

type TemplateManagerTraits interface {
	CreateWorkflowTemplate(c *TemplateCreation, sec *session.Session) (*domain.WorkflowTemplateDetail, error)
	DetailWorkflowTemplate(id types.ID, sec *session.Session) (*domain.WorkflowTemplateDetail, error)
	QueryWorkflowTemplates(q *TemplateQuery, sec *session.Session) (*[]domain.WorkflowTemplate, error)
	DeactivateWorkflowTemplate(id types.ID, sec *session.Session) error
	DeleteWorkflowTemplate(id types.ID, sec *session.Session) error

	SelectWorkflow(entityType string, snapshot rule.EntitySnapshot, sec *session.Session) (*domain.WorkflowTemplateDetail, error)
}

type TemplateManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake

	// active templates per entity type, selection is read-heavy
	activeCache *cache.Cache
}

func NewTemplateManager(ds *persistence.DataSourceManager) *TemplateManager {
	return &TemplateManager{
		dataSource:  ds,
		idWorker:    sonyflake.NewSonyflake(sonyflake.Settings{}),
		activeCache: cache.New(1*time.Minute, 5*time.Minute),
	}
}

func (m *TemplateManager) CreateWorkflowTemplate(c *TemplateCreation, sec *session.Session) (*domain.WorkflowTemplateDetail, error) {
	if sec.Identity.Role != domain.RoleDirector {
		return nil, bizerror.ErrForbidden
	}
	if len(c.Steps) == 0 {
		return nil, bizerror.ErrInvalidState
	}

	now := time.Now().Round(time.Millisecond)
	detail := &domain.WorkflowTemplateDetail{
		WorkflowTemplate: domain.WorkflowTemplate{
			ID:         idgen.NextID(m.idWorker),
			Name:       c.Name,
			EntityType: c.EntityType,
			Active:     true,
			CreateTime: now,
		},
		Conditions: c.Conditions,
	}
	for _, s := range c.Steps {
		slaHours := s.SLAHours
		if slaHours <= 0 {
			slaHours = domain.DefaultStepSLAHours
		}
		detail.Steps = append(detail.Steps, domain.StepDefinition{
			ID:         idgen.NextID(m.idWorker),
			TemplateID: detail.ID,

			Sequence:     s.Sequence,
			RequiredRole: s.RequiredRole,
			IsRequired:   s.IsRequired,
			SLAHours:     slaHours,
			MinAmount:    s.MinAmount,
			MaxAmount:    s.MaxAmount,

			CreateTime: now,
		})
	}

	db := m.dataSource.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&detail.WorkflowTemplate).Error; err != nil {
			return err
		}
		for _, s := range detail.Steps {
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
		}
		for idx, cond := range detail.Conditions {
			record := domain.TemplateCondition{
				ID:         idgen.NextID(m.idWorker),
				TemplateID: detail.ID,
				Ordinal:    idx + 1,
				Kind:       cond.Kind,
				Threshold:  cond.Threshold,
				Value:      cond.Value,
				CreateTime: now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.activeCache.Delete(c.EntityType)
	return detail, nil
}

func (m *TemplateManager) DetailWorkflowTemplate(id types.ID, sec *session.Session) (*domain.WorkflowTemplateDetail, error) {
	detail := domain.WorkflowTemplateDetail{}
	db := m.dataSource.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		return loadTemplateDetail(tx, id, &detail)
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func loadTemplateDetail(tx *gorm.DB, id types.ID, detail *domain.WorkflowTemplateDetail) error {
	if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&detail.WorkflowTemplate).Error; err != nil {
		return err
	}
	if err := tx.Where(domain.StepDefinition{TemplateID: id}).Order("sequence ASC").
		Find(&detail.Steps).Error; err != nil {
		return err
	}
	var conditionRecords []domain.TemplateCondition
	if err := tx.Where(domain.TemplateCondition{TemplateID: id}).Order("ordinal ASC").
		Find(&conditionRecords).Error; err != nil {
		return err
	}
	detail.Conditions = nil
	for _, record := range conditionRecords {
		detail.Conditions = append(detail.Conditions, rule.Condition{
			Kind: record.Kind, Threshold: record.Threshold, Value: record.Value,
		})
	}
	return nil
}

func (m *TemplateManager) QueryWorkflowTemplates(q *TemplateQuery, sec *session.Session) (*[]domain.WorkflowTemplate, error) {
	var templates []domain.WorkflowTemplate
	db := m.dataSource.GormDB(sec.Context)

	query := db.Model(&domain.WorkflowTemplate{})
	if q.EntityType != "" {
		query = query.Where(domain.WorkflowTemplate{EntityType: q.EntityType})
	}
	if q.Name != "" {
		query = query.Where("name like ?", "%"+q.Name+"%")
	}
	if err := query.Order("create_time DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return &templates, nil
}

// DeactivateWorkflowTemplate remove a template from selection. Instances
// already referencing it keep running.
func (m *TemplateManager) DeactivateWorkflowTemplate(id types.ID, sec *session.Session) error {
	if sec.Identity.Role != domain.RoleDirector {
		return bizerror.ErrForbidden
	}

	template := domain.WorkflowTemplate{}
	db := m.dataSource.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&template).Error; err != nil {
			return err
		}
		return tx.Model(&domain.WorkflowTemplate{}).Where(&domain.WorkflowTemplate{ID: id}).
			Update("active", false).Error
	})
	if err != nil {
		return err
	}
	m.activeCache.Delete(template.EntityType)
	return nil
}

// DeleteWorkflowTemplate is allowed only while no instance references the
// template.
func (m *TemplateManager) DeleteWorkflowTemplate(id types.ID, sec *session.Session) error {
	if sec.Identity.Role != domain.RoleDirector {
		return bizerror.ErrForbidden
	}

	template := domain.WorkflowTemplate{}
	db := m.dataSource.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&template).Error; err != nil {
			return err
		}
		if err := isTemplateReferenced(tx, id); err != nil {
			return err
		}

		if err := tx.Model(&domain.WorkflowTemplate{}).Delete(&domain.WorkflowTemplate{ID: id}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.StepDefinition{}).Where("template_id = ?", id).
			Delete(&domain.StepDefinition{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.TemplateCondition{}).Where("template_id = ?", id).
			Delete(&domain.TemplateCondition{}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.activeCache.Delete(template.EntityType)
	return nil
}

func isTemplateReferenced(db *gorm.DB, templateID types.ID) error {
	var instance domain.ApprovalInstance
	err := db.Model(&domain.ApprovalInstance{}).Where(&domain.ApprovalInstance{TemplateID: templateID}).
		First(&instance).Error
	if err == nil {
		return bizerror.ErrTemplateIsReferenced
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return nil
}
