// Package directory exposes the read-only lookups the workflow core borrows
// from the surrounding recruitment platform: users, companies, jobs, and
// applications. The core never writes through these ports.
package directory

import (
	"context"

	"github.com/talentgrid/interview-engine/internal/domain"
)

// DeviceSubscription is one registered push endpoint for a user.
type DeviceSubscription struct {
	ID       string
	Endpoint string
	Token    string
	Platform string
	Active   bool
}

type User struct {
	ID                  string
	Name                string
	Email               string
	Role                domain.Role
	DeviceSubscriptions []DeviceSubscription
}

// ActiveSubscriptions filters the user's registered devices to active ones.
func (u *User) ActiveSubscriptions() []DeviceSubscription {
	if u == nil {
		return nil
	}
	active := make([]DeviceSubscription, 0, len(u.DeviceSubscriptions))
	for _, sub := range u.DeviceSubscriptions {
		if sub.Active {
			active = append(active, sub)
		}
	}
	return active
}

type Company struct {
	ID    string
	Name  string
	Email string
}

type Job struct {
	ID    string
	Title string
}

type Application struct {
	ID          string
	CandidateID string
	JobID       string
	Status      string
}

type Users interface {
	FindUser(ctx context.Context, id string) (*User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]User, error)
}

type Companies interface {
	FindCompany(ctx context.Context, id string) (*Company, error)
}

type Jobs interface {
	FindJob(ctx context.Context, id string) (*Job, error)
}

type Applications interface {
	FindApplication(ctx context.Context, id string) (*Application, error)
}

// Directory bundles every collaborator lookup the engine consumes.
type Directory interface {
	Users
	Companies
	Jobs
	Applications
}
