package models

// Booking lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusQuoteSent  = "quote_sent"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRejected   = "rejected"
)

// Booking request (quote flow) statuses. Requests do not share the booking
// state machine.
const (
	RequestPending  = "pending"
	RequestQuoted   = "quoted"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

// Actor roles for lifecycle transitions.
const (
	RoleProvider = "provider"
	RoleCustomer = "customer"
	RoleSystem   = "system"
)

// Actor identifies who is attempting a transition.
type Actor struct {
	Role string `json:"role"`
	ID   int64  `json:"id"`
}

func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

type transitionKey struct {
	from string
	to   string
}

// transitions lists every legal (from, to) edge together with the roles
// allowed to trigger it.
var transitions = map[transitionKey][]string{
	{StatusPending, StatusConfirmed}:     {RoleProvider},
	{StatusPending, StatusRejected}:      {RoleProvider},
	{StatusPending, StatusCancelled}:     {RoleProvider, RoleCustomer, RoleSystem},
	{StatusQuoteSent, StatusConfirmed}:   {RoleCustomer},
	{StatusQuoteSent, StatusCancelled}:   {RoleProvider, RoleCustomer, RoleSystem},
	{StatusQuoteSent, StatusRejected}:    {RoleProvider},
	{StatusConfirmed, StatusInProgress}:  {RoleProvider},
	{StatusConfirmed, StatusCompleted}:   {RoleProvider, RoleSystem},
	{StatusConfirmed, StatusCancelled}:   {RoleProvider, RoleCustomer, RoleSystem},
	{StatusInProgress, StatusCompleted}:  {RoleProvider, RoleSystem},
	{StatusInProgress, StatusCancelled}:  {RoleProvider, RoleCustomer},
}

// CanTransition reports whether the edge from -> to exists in the table,
// regardless of actor.
func CanTransition(from, to string) bool {
	_, ok := transitions[transitionKey{from, to}]
	return ok
}

// ActorMayTransition reports whether the given role may trigger from -> to.
// Returns false for edges not in the table.
func ActorMayTransition(role, from, to string) bool {
	roles, ok := transitions[transitionKey{from, to}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusQuoteSent, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// CountsAgainstCapacity reports whether a booking in this status still holds
// its slot capacity. Cancelled and rejected bookings release capacity
// immediately.
func CountsAgainstCapacity(status string) bool {
	return status != StatusCancelled && status != StatusRejected
}

// ReasonRequired reports whether a transition into target by the given role
// must carry a free-text reason. Expiry and reconciliation paths (system
// actor) are exempt.
func ReasonRequired(role, target string) bool {
	if role == RoleSystem {
		return false
	}
	return target == StatusCancelled || target == StatusRejected
}
