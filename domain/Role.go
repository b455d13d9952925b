package domain

// Role identifies an approver population. Smaller value means higher authority.
type Role int

const (
	RoleDirector Role = 1
	RoleManager  Role = 2
	RoleOfficer  Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleDirector:
		return "DIRECTOR"
	case RoleManager:
		return "MANAGER"
	case RoleOfficer:
		return "OFFICER"
	}
	return "UNKNOWN"
}

// EscalationTarget is total: every role has a defined target, the top level
// maps to itself.
func EscalationTarget(r Role) Role {
	switch r {
	case RoleOfficer:
		return RoleManager
	case RoleManager:
		return RoleDirector
	case RoleDirector:
		return RoleDirector
	}
	return RoleDirector
}
