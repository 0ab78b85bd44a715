package order

type Status string

const (
	StatusCreated        Status = "CREATED"
	StatusPaymentPending Status = "PAYMENT_PENDING"
	StatusPaymentFailed  Status = "PAYMENT_FAILED"
	StatusPaid           Status = "PAID"
	StatusAccepted       Status = "ACCEPTED"
	StatusPreparing      Status = "PREPARING"
	StatusReady          Status = "READY"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunding      Status = "REFUNDING"
	StatusRefunded       Status = "REFUNDED"
)

// transitions is the single source of truth for legal status moves. Every
// status must appear as a key; terminal statuses map to an empty set.
var transitions = map[Status][]Status{
	StatusCreated:        {StatusPaymentPending},
	StatusPaymentPending: {StatusPaid, StatusPaymentFailed},
	StatusPaymentFailed:  {StatusCancelled},
	StatusPaid:           {StatusAccepted, StatusRefunding},
	StatusAccepted:       {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady},
	StatusReady:          {StatusReadyForPickup, StatusOutForDelivery},
	StatusReadyForPickup: {StatusCompleted},
	StatusOutForDelivery: {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
	StatusRefunding:      {StatusRefunded},
	StatusRefunded:       {},
}

var allStatuses = []Status{
	StatusCreated, StatusPaymentPending, StatusPaymentFailed, StatusPaid,
	StatusAccepted, StatusPreparing, StatusReady, StatusReadyForPickup,
	StatusOutForDelivery, StatusCompleted, StatusCancelled, StatusRefunding,
	StatusRefunded,
}

// A missing or unreachable status is a startup error, not a runtime surprise.
func init() {
	for _, s := range allStatuses {
		if _, ok := transitions[s]; !ok {
			panic("order: status " + string(s) + " missing from transition table")
		}
	}
	for from, targets := range transitions {
		if !from.Valid() {
			panic("order: unknown status " + string(from) + " in transition table")
		}
		for _, to := range targets {
			if !to.Valid() {
				panic("order: unknown target status " + string(to) + " in transition table")
			}
		}
	}
}

func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the move s -> target is in the table.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
