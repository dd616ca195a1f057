package event

import (
	"context"
	"strings"
	"time"
)

type Kind string

const (
	LoanStatusChanged Kind = "loan.status_changed"
	PaymentRecorded   Kind = "loan.payment_recorded"
	RequestDecided    Kind = "subsidy.request_decided"
)

// Event is an outbound notification raised after a transaction commits.
type Event struct {
	Kind      Kind   `json:"kind"`
	SubjectID string `json:"subject_id"`
	SFDID     string `json:"sfd_id,omitempty"`
	Status    string `json:"status"`
	// Ref distinguishes repeated events of the same status, e.g. a payment id.
	Ref        string    `json:"ref,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DedupeKey identifies the event for at-least-once delivery: a retry of the
// same (subject, status) pair is delivered once.
func (e Event) DedupeKey() string {
	parts := []string{string(e.Kind), e.SubjectID, e.Status}
	if e.Ref != "" {
		parts = append(parts, e.Ref)
	}
	return strings.Join(parts, ":")
}

// Publisher hands events to the notification pipeline. Publish must not block
// on delivery and has no error result: delivery failures are the pipeline's
// concern, never the committed operation's.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
