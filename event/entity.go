package event

import (
	"github.com/fundwit/go-commons/types"
)

type Category string

const (
	CategoryInstanceStarted      Category = "instance_started"
	CategoryApproverAssigned     Category = "approver_assigned"
	CategoryDecisionRecorded     Category = "decision_recorded"
	CategoryStepEscalated        Category = "step_escalated"
	CategoryApproverFallbackUsed Category = "approver_fallback_used"
	CategoryInstanceReset        Category = "instance_reset"
)

type Event struct {
	SourceType string   `json:"sourceType"`
	SourceId   types.ID `json:"sourceId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	SourceDesc string   `json:"sourceDesc"`

	EventCategory Category `json:"eventCategory"`

	CreatorId   types.ID `json:"creatorId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	CreatorName string   `json:"creatorName"`
}

type EventRecord struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Event

	Synced    bool            `json:"synced"`
	Timestamp types.Timestamp `json:"timestamp" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *EventRecord) TableName() string {
	return "events"
}
