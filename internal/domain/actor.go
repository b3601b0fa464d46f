package domain

import (
	"fmt"
	"strings"
)

// Role identifies which side of the workflow an actor drives.
type Role string

const (
	RoleCandidate Role = "CANDIDATE"
	RoleCompany   Role = "COMPANY"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleCandidate, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

func ParseRoleFromString(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: invalid role %q", ErrValidation, s)
	}
	return r, nil
}

// Actor is the authenticated identity a transition is invoked on behalf of.
// Authentication itself happens upstream; the engine only checks ownership.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrValidation)
	}
	if !a.Role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", ErrValidation, a.Role)
	}
	return nil
}
