package domain

import (
	"github.com/fundwit/go-commons/types"
)

type InstanceStatus string

const (
	InstancePending    InstanceStatus = "PENDING"
	InstanceInProgress InstanceStatus = "IN_PROGRESS"
	InstanceApproved   InstanceStatus = "APPROVED"
	InstanceRejected   InstanceStatus = "REJECTED"
)

func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceApproved || s == InstanceRejected
}

// ApprovalInstance is one approval run for one business entity. The unique
// index over (entity_type, entity_id) is the storage-level guard that keeps
// concurrent starts from creating duplicates.
type ApprovalInstance struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	EntityType string   `json:"entityType" gorm:"unique_index:uni_instance_entity"`
	EntityID   types.ID `json:"entityId" gorm:"unique_index:uni_instance_entity" sql:"type:BIGINT UNSIGNED NOT NULL"`

	TemplateID types.ID       `json:"templateId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Status     InstanceStatus `json:"status"`

	// CurrentStepIndex is 0-based over the template's ordered steps;
	// 0 means not yet started and it never exceeds TotalSteps.
	CurrentStepIndex int `json:"currentStepIndex"`
	TotalSteps       int `json:"totalSteps"`

	// SLADeadline is the aggregate worst-case turnaround, computed once at
	// start as now + sum of all step budgets. It is not recomputed after
	// escalation shortens or extends a step's effective window.
	SLADeadline types.Timestamp `json:"slaDeadline" sql:"type:DATETIME(6) NOT NULL"`

	InitiatorID types.ID        `json:"initiatorId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	CreateTime  types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ApprovalDetail struct {
	ApprovalInstance

	// Actions ordered by sequence then creation time, so escalated duplicates
	// appear after the action they replaced.
	Actions []ApprovalAction `json:"actions"`
}

// CurrentActions latest action per sequence
func (d *ApprovalDetail) CurrentActions() []ApprovalAction {
	latest := map[int]ApprovalAction{}
	for _, a := range d.Actions {
		latest[a.Sequence] = a
	}
	r := make([]ApprovalAction, 0, len(latest))
	for seq := 1; seq <= d.TotalSteps; seq++ {
		if a, found := latest[seq]; found {
			r = append(r, a)
		}
	}
	return r
}
