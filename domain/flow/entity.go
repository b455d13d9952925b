package flow

import (
	"procflow/domain"
	"procflow/domain/rule"
)

type TemplateCreation struct {
	Name       string `json:"name"       binding:"required"`
	EntityType string `json:"entityType" binding:"required"`

	Steps      []StepCreating   `json:"steps"      binding:"required,dive"`
	Conditions []rule.Condition `json:"conditions" binding:"dive"`
}

type StepCreating struct {
	Sequence     int         `json:"sequence"     binding:"required,min=1"`
	RequiredRole domain.Role `json:"requiredRole" binding:"required"`
	IsRequired   bool        `json:"isRequired"`
	SLAHours     int         `json:"slaHours"`

	MinAmount *float64 `json:"minAmount"`
	MaxAmount *float64 `json:"maxAmount"`
}

type TemplateQuery struct {
	EntityType string `form:"entityType"`
	Name       string `form:"name"`
}
