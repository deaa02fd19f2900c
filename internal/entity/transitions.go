package entity

type BookingAction string

const (
	ActionApprove  BookingAction = "approve"
	ActionReject   BookingAction = "reject"
	ActionReady    BookingAction = "ready_for_pickup"
	ActionStart    BookingAction = "start_trip"
	ActionComplete BookingAction = "complete"
	ActionCancel   BookingAction = "cancel"
	ActionExpire   BookingAction = "expire"
)

type transitionKey struct {
	from   BookingStatus
	action BookingAction
}

// bookingTransitions is the only place booking status changes are defined.
var bookingTransitions = map[transitionKey]BookingStatus{
	{BookingStatusPending, ActionApprove}:      BookingStatusApproved,
	{BookingStatusPending, ActionReject}:       BookingStatusRejected,
	{BookingStatusPending, ActionCancel}:       BookingStatusCancelled,
	{BookingStatusPending, ActionExpire}:       BookingStatusExpired,
	{BookingStatusApproved, ActionReady}:       BookingStatusReadyForPickup,
	{BookingStatusApproved, ActionCancel}:      BookingStatusCancelled,
	{BookingStatusApproved, ActionExpire}:      BookingStatusExpired,
	{BookingStatusReadyForPickup, ActionStart}: BookingStatusOngoing,
	{BookingStatusOngoing, ActionComplete}:     BookingStatusCompleted,
}

// NextStatus returns the status reached by applying action in from, or a
// Conflict naming the current status.
func NextStatus(from BookingStatus, action BookingAction) (BookingStatus, error) {
	next, ok := bookingTransitions[transitionKey{from, action}]
	if !ok {
		return "", Conflict("cannot %s booking in status %s", action, from)
	}
	return next, nil
}

// AllowedActions lists the actions valid from a status.
func AllowedActions(from BookingStatus) []BookingAction {
	var actions []BookingAction
	for _, a := range []BookingAction{ActionApprove, ActionReject, ActionReady, ActionStart, ActionComplete, ActionCancel, ActionExpire} {
		if _, ok := bookingTransitions[transitionKey{from, a}]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}

func (s BookingStatus) IsTerminal() bool {
	return len(AllowedActions(s)) == 0
}

var AllBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusRejected,
	BookingStatusReadyForPickup,
	BookingStatusOngoing,
	BookingStatusCompleted,
	BookingStatusCancelled,
	BookingStatusExpired,
}
