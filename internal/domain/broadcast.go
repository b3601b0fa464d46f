package domain

import "time"

// BroadcastStatus represents the fan-out state of a role broadcast.
type BroadcastStatus string

const (
	BroadcastProcessing     BroadcastStatus = "PROCESSING"
	BroadcastCompleted      BroadcastStatus = "COMPLETED"
	BroadcastPartialFailure BroadcastStatus = "PARTIAL_FAILURE"
)

func (s BroadcastStatus) String() string { return string(s) }

func (s BroadcastStatus) IsValid() bool {
	switch s {
	case BroadcastProcessing, BroadcastCompleted, BroadcastPartialFailure:
		return true
	}
	return false
}

// Broadcast groups the notifications created by one role fan-out, so callers
// hand the dispatcher a role selector instead of looping over a directory
// query themselves.
type Broadcast struct {
	ID         string
	Role       Role
	TotalCount int
	Status     BroadcastStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
