package domain

import (
	"procflow/domain/rule"
	"time"

	"github.com/fundwit/go-commons/types"
)

// entity types routed by the engine
const (
	EntityTypeVendor        = "VENDOR"
	EntityTypeRFQ           = "RFQ"
	EntityTypeContract      = "CONTRACT"
	EntityTypePurchaseOrder = "PURCHASE_ORDER"
	EntityTypeDocument      = "DOCUMENT"
)

// WorkflowTemplate is long-lived reference data. A template referenced by a
// live instance is never edited in place: edits create a new template and the
// old one is deactivated.
type WorkflowTemplate struct {
	ID   types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name string   `json:"name"`

	EntityType string    `json:"entityType" gorm:"index:idx_template_entity_type"`
	Active     bool      `json:"active"`
	CreateTime time.Time `json:"createTime" sql:"type:DATETIME(3) NOT NULL"`
}

type StepDefinition struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TemplateID types.ID `json:"templateId" gorm:"index:idx_step_template" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Sequence     int  `json:"sequence"`
	RequiredRole Role `json:"requiredRole"`
	IsRequired   bool `json:"isRequired"`
	SLAHours     int  `json:"slaHours"`

	MinAmount *float64 `json:"minAmount,omitempty"`
	MaxAmount *float64 `json:"maxAmount,omitempty"`

	CreateTime time.Time `json:"createTime" sql:"type:DATETIME(3) NOT NULL"`
}

// TemplateCondition persists one ordered selector condition of a template.
type TemplateCondition struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TemplateID types.ID `json:"templateId" gorm:"index:idx_condition_template" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Ordinal   int       `json:"ordinal"`
	Kind      rule.Kind `json:"kind"`
	Threshold float64   `json:"threshold"`
	Value     string    `json:"value"`

	CreateTime time.Time `json:"createTime" sql:"type:DATETIME(3) NOT NULL"`
}

type WorkflowTemplateDetail struct {
	WorkflowTemplate

	Steps      []StepDefinition `json:"steps"`
	Conditions []rule.Condition `json:"conditions"`
}

func (d *WorkflowTemplateDetail) FindStep(sequence int) (StepDefinition, bool) {
	for _, s := range d.Steps {
		if s.Sequence == sequence {
			return s, true
		}
	}
	return StepDefinition{}, false
}

// DefaultStepSLAHours applies when a step definition carries no SLA budget.
const DefaultStepSLAHours = 72
