package domain

import (
	"github.com/fundwit/go-commons/types"
)

type ActionStatus string

const (
	ActionPending   ActionStatus = "PENDING"
	ActionApproved  ActionStatus = "APPROVED"
	ActionRejected  ActionStatus = "REJECTED"
	ActionEscalated ActionStatus = "ESCALATED"
)

func (s ActionStatus) IsDecided() bool {
	return s != ActionPending
}

// ApprovalAction is the concrete record of a pending or taken decision for one
// step position. Escalation never mutates a decided row: it closes the old
// action as ESCALATED and creates a fresh one at the same sequence.
type ApprovalAction struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	InstanceID types.ID `json:"instanceId" gorm:"index:idx_action_instance" sql:"type:BIGINT UNSIGNED NOT NULL"`

	StepID   types.ID `json:"stepId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Sequence int      `json:"sequence"`

	RequiredRole Role `json:"requiredRole"`
	// ApproverID is zero until the step becomes current and an approver is
	// resolved for it.
	ApproverID types.ID `json:"approverId" gorm:"index:idx_action_approver" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Status        ActionStatus `json:"status"`
	Comments      string       `json:"comments" sql:"type:TEXT"`
	SignatureData string       `json:"signatureData" sql:"type:TEXT"`

	SLADeadline types.Timestamp  `json:"slaDeadline" sql:"type:DATETIME(6) NOT NULL"`
	SignedAt    *types.Timestamp `json:"signedAt" sql:"type:DATETIME(6)"`
	EscalatedAt *types.Timestamp `json:"escalatedAt" sql:"type:DATETIME(6)"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}
