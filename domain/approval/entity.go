package approval

import (
	"procflow/domain"
	"procflow/domain/rule"

	"github.com/fundwit/go-commons/types"
)

type ApprovalCreation struct {
	EntityType string   `json:"entityType" binding:"required"`
	EntityID   types.ID `json:"entityId"   binding:"required"`

	// TemplateID pins a template explicitly; when zero the selector picks one
	// from the snapshot.
	TemplateID types.ID            `json:"templateId"`
	Snapshot   rule.EntitySnapshot `json:"snapshot"`
}

type StepDecision struct {
	ActionID types.ID

	Decision      domain.ActionStatus
	Comments      string
	SignatureData string
}

type EscalationResult struct {
	EscalatedAction domain.ApprovalAction `json:"escalatedAction"`
	NewAction       domain.ApprovalAction `json:"newAction"`
}

type ProgressReport struct {
	InstanceID types.ID              `json:"instanceId"`
	Status     domain.InstanceStatus `json:"status"`

	CurrentStep    int `json:"currentStep"`
	TotalSteps     int `json:"totalSteps"`
	CompletedSteps int `json:"completedSteps"`
	// CompletionPercentage is completedSteps/totalSteps*100 rounded to the
	// nearest integer.
	CompletionPercentage int `json:"completionPercentage"`

	IsBreached   bool             `json:"isBreached"`
	NextDeadline *types.Timestamp `json:"nextDeadline"`

	History []domain.ApprovalAction `json:"history"`
}
