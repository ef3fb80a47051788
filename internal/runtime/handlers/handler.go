package handlers

// Handler is the shape every registered callback is adapted to: it receives
// the decoded body and the message handle and may return any value.
type Handler func(body any, msg *Message) (any, error)

// Outcome is the acknowledgement decision for one handler invocation.
type Outcome int

const (
	// OutcomeAck removes the message from its queue.
	OutcomeAck Outcome = iota + 1
	// OutcomePending leaves the message unacknowledged so the broker
	// redelivers it.
	OutcomePending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Decide maps a handler's return value onto an Outcome. An Outcome is used
// as is, false means pending and every other value (nil included) means ack.
func Decide(result any) Outcome {
	switch v := result.(type) {
	case Outcome:
		if v == OutcomePending {
			return OutcomePending
		}
		return OutcomeAck
	case bool:
		if !v {
			return OutcomePending
		}
	}
	return OutcomeAck
}
