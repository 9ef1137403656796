package transactions

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
)

// Provider event names.
const (
	EventPaymentProcessing = "payment.processing"
	EventPaymentSucceeded  = "payment.succeeded"
	EventPaymentFailed     = "payment.failed"
	EventDisputeCreated    = "dispute.created"
)

const defaultFailureReason = "Payment failed"

// ProviderEvent is a payment provider notification about one transaction.
// Provider is the payment method that sent it.
type ProviderEvent struct {
	TransactionID     string           `json:"transaction_id"`
	Provider          string           `json:"-"`
	Event             string           `json:"event"`
	Reason            string           `json:"reason,omitempty"`
	ExternalReference string           `json:"external_reference,omitempty"`
	ProcessingFee     *decimal.Decimal `json:"processing_fee,omitempty"`
}

// ApplyProviderEvent returns rec updated for ev. rec itself is never
// modified.
func ApplyProviderEvent(rec domain.TransactionRecord, ev ProviderEvent, now time.Time) (domain.TransactionRecord, error) {
	switch domain.PaymentMethod(ev.Provider) {
	case domain.PaymentStripe, domain.PaymentPayPal:
	default:
		return rec, domain.Errorf(domain.KindInvalidArgument, "unsupported provider: %s", ev.Provider)
	}
	if string(rec.PaymentMethod) != ev.Provider {
		return rec, domain.Errorf(domain.KindInvalidArgument,
			"transaction %s was not paid with %s", rec.ID, ev.Provider)
	}

	inFlight := rec.Status == domain.StatusPending || rec.Status == domain.StatusProcessing

	switch ev.Event {
	case EventPaymentProcessing:
		if rec.Status != domain.StatusPending {
			return rec, domain.Errorf(domain.KindInvalidState, "cannot start processing a %s transaction", rec.Status)
		}
		rec.Status = domain.StatusProcessing
	case EventPaymentSucceeded:
		if !inFlight {
			return rec, domain.Errorf(domain.KindInvalidState, "cannot complete a %s transaction", rec.Status)
		}
		rec.SetTerminal(domain.StatusCompleted, now)
		if ev.ProcessingFee != nil {
			rec.ProcessingFee = *ev.ProcessingFee
		}
	case EventPaymentFailed:
		if !inFlight {
			return rec, domain.Errorf(domain.KindInvalidState, "cannot fail a %s transaction", rec.Status)
		}
		rec.SetTerminal(domain.StatusFailed, now)
		rec.FailureReason = ev.Reason
		if rec.FailureReason == "" {
			rec.FailureReason = defaultFailureReason
		}
	case EventDisputeCreated:
		rec.Status = domain.StatusDisputed
		rec.DisputedAt = &now
		rec.DisputeStatus = domain.DisputeOpen
		rec.DisputeReason = ev.Reason
	default:
		return rec, domain.Errorf(domain.KindInvalidArgument, "unknown provider event: %s", ev.Event)
	}

	if rec.ExternalReference == "" {
		rec.ExternalReference = ev.ExternalReference
	}
	rec.UpdatedAt = now
	return rec, nil
}

// ApplyProviderEvent loads the referenced transaction, applies ev and
// stores the result.
func (s *Service) ApplyProviderEvent(ctx context.Context, ev ProviderEvent) (*domain.TransactionRecord, error) {
	if ev.TransactionID == "" {
		return nil, domain.Errorf(domain.KindInvalidArgument, "transaction_id is required")
	}
	rec, err := s.store.GetByID(ctx, ev.TransactionID)
	if err != nil {
		return nil, err
	}
	next, err := ApplyProviderEvent(*rec, ev, s.now())
	if err != nil {
		s.logger.Warn().Err(err).
			Str("transaction_id", ev.TransactionID).
			Str("provider", ev.Provider).
			Str("event", ev.Event).
			Msg("provider event rejected")
		return nil, err
	}
	if err := s.store.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("transaction_id", ev.TransactionID).
		Str("provider", ev.Provider).
		Str("event", ev.Event).
		Str("status", string(next.Status)).
		Msg("provider event applied")
	return &next, nil
}
