package session

import (
	"context"
	"procflow/domain"
	"time"

	"github.com/fundwit/go-commons/types"
)

// Session carries the already-authenticated actor identity. The engine only
// consumes it; authentication itself belongs to the surrounding system.
type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`

	Context     context.Context `json:"-"`
	SigningTime time.Time       `json:"-"`
}

type Identity struct {
	ID   types.ID    `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

func (s *Session) Clone() Session {
	return Session{Token: s.Token, Identity: s.Identity, SigningTime: s.SigningTime}
}
