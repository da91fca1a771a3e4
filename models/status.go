package models

import "fmt"

// IssueStatus enum
type IssueStatus string

const (
	Open       IssueStatus = "Open"
	InProgress IssueStatus = "In Progress"
	Resolved   IssueStatus = "Resolved"
)

// ResolutionReward is the number of Fix Points credited to a resolver.
const ResolutionReward = 10

func (s IssueStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Resolved is terminal. Same-state writes are allowed for the open states.
var statusTransitions = map[IssueStatus]map[IssueStatus]bool{
	Open: {
		Open:       true,
		InProgress: true,
		Resolved:   true,
	},
	InProgress: {
		InProgress: true,
		Resolved:   true,
	},
	Resolved: {},
}

// ValidateTransition reports whether an issue may move from one status to another.
func ValidateTransition(from, to IssueStatus) error {
	if !to.Valid() {
		return NewValidationError("status", "must be one of Open, In Progress, Resolved")
	}
	if !statusTransitions[from][to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
