package models

// Status is the closed set of document request workflow states.
//
// Invariant: transitions below are the single source of truth for which
// moves are legal. Guards (role, requirements, payment) are layered on top
// by the service; this table only encodes reachability.
type Status string

const (
	StatusPending            Status = "pending"
	StatusBarangayProcessing Status = "barangay_processing"
	StatusBarangayApproved   Status = "barangay_approved"
	StatusBarangayRejected   Status = "barangay_rejected"
	StatusApproved           Status = "approved"
	StatusProcessing         Status = "processing"
	StatusReady              Status = "ready"
	StatusCompleted          Status = "completed"
	StatusPickedUp           Status = "picked_up"
	StatusRejected           Status = "rejected"
	StatusCancelled          Status = "cancelled"
)

// transitions maps each source status to its reachable targets.
// Terminal states have no entry.
var transitions = map[Status][]Status{
	StatusPending: {
		StatusApproved, StatusRejected, StatusCancelled,
		StatusBarangayProcessing, StatusBarangayApproved, StatusBarangayRejected,
	},
	StatusBarangayProcessing: {
		StatusBarangayApproved, StatusBarangayRejected, StatusCancelled,
	},
	StatusBarangayApproved: {
		StatusApproved, StatusProcessing, StatusReady,
		StatusCompleted, StatusPickedUp, StatusRejected, StatusCancelled,
	},
	StatusApproved: {
		StatusProcessing, StatusRejected, StatusCancelled,
	},
	StatusProcessing: {
		StatusReady, StatusCompleted, StatusRejected, StatusCancelled,
	},
	StatusReady: {
		StatusCompleted, StatusPickedUp, StatusRejected, StatusCancelled,
	},
}

var validStatuses = map[Status]bool{
	StatusPending:            true,
	StatusBarangayProcessing: true,
	StatusBarangayApproved:   true,
	StatusBarangayRejected:   true,
	StatusApproved:           true,
	StatusProcessing:         true,
	StatusReady:              true,
	StatusCompleted:          true,
	StatusPickedUp:           true,
	StatusRejected:           true,
	StatusCancelled:          true,
}

// IsValid checks membership in the closed status set.
func (s Status) IsValid() bool { return validStatuses[s] }

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	_, ok := transitions[s]
	return s.IsValid() && !ok
}

// CanTransition reports whether target is reachable from s. A transition to
// the current status is not covered here; the service treats it as an
// idempotent no-op before consulting the table.
func (s Status) CanTransition(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Targets returns a copy of the reachable targets for s.
func (s Status) Targets() []Status {
	return append([]Status(nil), transitions[s]...)
}

// barangayTargets is the target set a barangay-scoped actor may reach on a
// municipal-authority document type.
var barangayTargets = map[Status]bool{
	StatusBarangayProcessing: true,
	StatusBarangayApproved:   true,
	StatusBarangayRejected:   true,
	StatusCancelled:          true,
}

// BarangayReachable reports whether target is inside the barangay-scoped
// target set.
func BarangayReachable(target Status) bool { return barangayTargets[target] }

// fulfillmentStatuses require complete evidence before entry.
var fulfillmentStatuses = map[Status]bool{
	StatusApproved:         true,
	StatusProcessing:       true,
	StatusReady:            true,
	StatusCompleted:        true,
	StatusPickedUp:         true,
	StatusBarangayApproved: true,
}

// RequiresCompleteEvidence reports whether entering s demands that all
// declared requirements have been submitted.
func RequiresCompleteEvidence(s Status) bool { return fulfillmentStatuses[s] }
