package directory

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"procflow/bizerror"
	"procflow/domain"
	"procflow/misc"

	"github.com/fundwit/go-commons/types"
)

type UserRef struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

// ActorDirectory resolves an active user holding a role to a concrete
// approver. Implemented by the surrounding user store; a nil result with nil
// error means no active holder exists.
type ActorDirectory interface {
	FindActiveUserWithRole(role domain.Role) (*UserRef, error)
}

// HttpDirectory resolves approvers against the surrounding user service.
// DIRECTORY_URL
type HttpDirectory struct {
	BaseURL string
}

func (d *HttpDirectory) FindActiveUserWithRole(role domain.Role) (*UserRef, error) {
	respBody, err := misc.HttpInvokeJson(http.MethodGet,
		d.BaseURL+"/v1/users?active=true&role="+url.QueryEscape(role.String()), nil, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bizerror.ErrUpstreamUnavailable, err)
	}

	users := []UserRef{}
	if err := json.Unmarshal([]byte(respBody), &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
