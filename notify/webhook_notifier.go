package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"procflow/misc"

	"github.com/fundwit/go-commons/types"
)

// WebhookNotifier forwards notices to the surrounding notification service.
// NOTIFICATION_SERVICE_URL
type WebhookNotifier struct {
	BaseURL string
}

func (n *WebhookNotifier) NotifyAssigned(userID types.ID, assignment StepAssignment) error {
	body := struct {
		UserID     types.ID       `json:"userId"`
		Assignment StepAssignment `json:"assignment"`
	}{UserID: userID, Assignment: assignment}
	return n.post("/v1/notifications/assignments", &body)
}

func (n *WebhookNotifier) NotifyDecision(requesterID types.ID, outcome DecisionOutcome) error {
	body := struct {
		UserID  types.ID        `json:"userId"`
		Outcome DecisionOutcome `json:"outcome"`
	}{UserID: requesterID, Outcome: outcome}
	return n.post("/v1/notifications/decisions", &body)
}

func (n *WebhookNotifier) post(path string, body interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	_, err = misc.HttpInvokeJson(http.MethodPost, n.BaseURL+path, nil, string(reqBody))
	if err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	return nil
}
