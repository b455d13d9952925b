package notify

import (
	"procflow/domain"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

// StepAssignment is the context delivered with an "approver assigned" notice.
type StepAssignment struct {
	InstanceID types.ID `json:"instanceId"`
	ActionID   types.ID `json:"actionId"`

	EntityType string   `json:"entityType"`
	EntityID   types.ID `json:"entityId"`

	Sequence     int             `json:"sequence"`
	RequiredRole domain.Role     `json:"requiredRole"`
	SLADeadline  types.Timestamp `json:"slaDeadline"`
}

type DecisionOutcome struct {
	InstanceID types.ID `json:"instanceId"`
	EntityType string   `json:"entityType"`
	EntityID   types.ID `json:"entityId"`

	Sequence int                 `json:"sequence"`
	Decision domain.ActionStatus `json:"decision"`
	Comments string              `json:"comments"`
}

// NotifierPort is implemented by the surrounding notification service.
// Delivery is best-effort: a failure must never roll back the state
// transition that produced the notice.
type NotifierPort interface {
	NotifyAssigned(userID types.ID, assignment StepAssignment) error
	NotifyDecision(requesterID types.ID, outcome DecisionOutcome) error
}

// LogNotifier is the in-process default, it only records the notice.
type LogNotifier struct {
}

func (n *LogNotifier) NotifyAssigned(userID types.ID, assignment StepAssignment) error {
	logrus.Infof("notify user %d: assigned approval action %d (instance %d, step %d, role %s)",
		userID, assignment.ActionID, assignment.InstanceID, assignment.Sequence, assignment.RequiredRole)
	return nil
}

func (n *LogNotifier) NotifyDecision(requesterID types.ID, outcome DecisionOutcome) error {
	logrus.Infof("notify user %d: instance %d step %d decided %s",
		requesterID, outcome.InstanceID, outcome.Sequence, outcome.Decision)
	return nil
}
