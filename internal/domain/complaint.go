package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints. Values match
// the wire format used by the REST API.
type ComplaintStatus string

const (
	ComplaintStatusSubmitted   ComplaintStatus = "submitted"
	ComplaintStatusUnderReview ComplaintStatus = "under_review"
	ComplaintStatusResolved    ComplaintStatus = "resolved"
	ComplaintStatusRejected    ComplaintStatus = "rejected"
	ComplaintStatusClosed      ComplaintStatus = "closed"
	ComplaintStatusWithdrawn   ComplaintStatus = "withdrawn"
)

// Valid reports whether the status is a known lifecycle state.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusSubmitted, ComplaintStatusUnderReview, ComplaintStatusResolved,
		ComplaintStatusRejected, ComplaintStatusClosed, ComplaintStatusWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from the status.
func (s ComplaintStatus) Terminal() bool {
	return s == ComplaintStatusClosed || s == ComplaintStatusWithdrawn
}

// ComplaintAction enumerates the role-gated transitions a caller may request.
type ComplaintAction string

const (
	ActionBeginReview ComplaintAction = "begin_review"
	ActionResolve     ComplaintAction = "resolve"
	ActionReject      ComplaintAction = "reject"
	ActionWithdraw    ComplaintAction = "withdraw"
	ActionClose       ComplaintAction = "close"
)

// ComplaintSubjectType identifies what a complaint is raised against.
type ComplaintSubjectType string

const (
	SubjectUser    ComplaintSubjectType = "user"
	SubjectProduct ComplaintSubjectType = "product"
	SubjectRental  ComplaintSubjectType = "rental"
)

// Valid reports whether the subject type is known.
func (t ComplaintSubjectType) Valid() bool {
	return t == SubjectUser || t == SubjectProduct || t == SubjectRental
}

// Complaint is the aggregate for user-filed complaints and claims.
// Complaints are never physically deleted; terminal statuses preserve the
// audit history.
type Complaint struct {
	ID              string
	ComplainantID   string
	SubjectType     *ComplaintSubjectType
	SubjectID       *string
	Category        string
	Title           string
	Details         string
	Status          ComplaintStatus
	HandlerID       *string
	ResolutionNotes *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

// transitionRule describes one edge of the lifecycle graph.
type transitionRule struct {
	from          map[ComplaintStatus]bool
	to            ComplaintStatus
	byComplainant bool
}

// transitionTable is the single authority for complaint transitions. Any
// action/status pair absent from it is an invalid transition.
var transitionTable = map[ComplaintAction]transitionRule{
	ActionBeginReview: {
		from: map[ComplaintStatus]bool{ComplaintStatusSubmitted: true},
		to:   ComplaintStatusUnderReview,
	},
	ActionResolve: {
		from: map[ComplaintStatus]bool{ComplaintStatusUnderReview: true},
		to:   ComplaintStatusResolved,
	},
	ActionReject: {
		from: map[ComplaintStatus]bool{ComplaintStatusUnderReview: true},
		to:   ComplaintStatusRejected,
	},
	ActionWithdraw: {
		from: map[ComplaintStatus]bool{
			ComplaintStatusSubmitted:   true,
			ComplaintStatusUnderReview: true,
		},
		to:            ComplaintStatusWithdrawn,
		byComplainant: true,
	},
	ActionClose: {
		from: map[ComplaintStatus]bool{
			ComplaintStatusResolved: true,
			ComplaintStatusRejected: true,
		},
		to: ComplaintStatusClosed,
	},
}

// TransitionFor returns the resulting status for applying action to current,
// or false when the edge is not in the lifecycle graph.
func TransitionFor(action ComplaintAction, current ComplaintStatus) (ComplaintStatus, bool) {
	rule, ok := transitionTable[action]
	if !ok || !rule.from[current] {
		return "", false
	}
	return rule.to, true
}

// ActionByComplainant reports whether the action belongs to the complainant
// rather than reviewing staff.
func ActionByComplainant(action ComplaintAction) bool {
	rule, ok := transitionTable[action]
	return ok && rule.byComplainant
}

// CanTransition reports whether some action moves a complaint from current
// to next.
func CanTransition(current, next ComplaintStatus) bool {
	for _, rule := range transitionTable {
		if rule.from[current] && rule.to == next {
			return true
		}
	}
	return false
}
