package order

// Status is the lifecycle state of an order
type Status string

const (
	StatusPending              Status = "pending"
	StatusConfirmed            Status = "confirmed"
	StatusProcessing           Status = "processing"
	StatusShipped              Status = "shipped"
	StatusDelivered            Status = "delivered"
	StatusCancelled            Status = "cancelled"
	StatusReturnRequested      Status = "return_requested"
	StatusReturned             Status = "returned"
	StatusReplacementRequested Status = "replacement_requested"
	StatusReplaced             Status = "replaced"
)

var transitions = map[Status][]Status{
	StatusPending:              {StatusConfirmed, StatusCancelled},
	StatusConfirmed:            {StatusProcessing, StatusCancelled},
	StatusProcessing:           {StatusShipped, StatusCancelled},
	StatusShipped:              {StatusDelivered},
	StatusDelivered:            {StatusReturnRequested, StatusReplacementRequested},
	StatusReturnRequested:      {StatusReturned, StatusDelivered},
	StatusReplacementRequested: {StatusReplaced, StatusDelivered},
}

// StatusValues returns every status in lifecycle order
func StatusValues() []Status {
	return []Status{
		StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusReturnRequested, StatusReturned, StatusReplacementRequested, StatusReplaced,
	}
}

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	for _, v := range StatusValues() {
		if v == s {
			return true
		}
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can move to target
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable in one step
func (s Status) NextStatuses() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTerminal returns true when no further transition exists
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsCancellable returns true while the order has not shipped
func (s Status) IsCancellable() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// HasOpenAfterSales returns true while a return or replacement is in progress
func (s Status) HasOpenAfterSales() bool {
	return s == StatusReturnRequested || s == StatusReplacementRequested
}

// Label returns the display name
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusProcessing:
		return "Processing"
	case StatusShipped:
		return "Shipped"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	case StatusReturnRequested:
		return "Return Requested"
	case StatusReturned:
		return "Returned"
	case StatusReplacementRequested:
		return "Replacement Requested"
	case StatusReplaced:
		return "Replaced"
	}
	return string(s)
}
