package transactions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
)

type Action string

const (
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionCancel       Action = "cancel"
	ActionMarkDisputed Action = "mark_disputed"
)

const defaultRejectReason = "Rejected by admin"

// DisputeDecision is an admin's resolution of a disputed transaction.
// PartialRefundAmount is only read for partial refunds.
type DisputeDecision struct {
	Resolution          domain.DisputeResolution `json:"resolution"`
	PartialRefundAmount *decimal.Decimal         `json:"partial_refund_amount,omitempty"`
	AdminNotes          string                   `json:"admin_notes,omitempty"`
	AdminID             string                   `json:"-"`
}

type ActionRequest struct {
	Action     Action `json:"action"`
	Reason     string `json:"reason,omitempty"`
	AdminNotes string `json:"admin_notes,omitempty"`
	AdminID    string `json:"-"`
}

// ResolveDispute returns rec with the decision applied. rec itself is never
// modified, so a failed resolution leaves the caller's copy intact.
//
// A partial refund resolves the dispute but leaves the transaction status
// as it was.
func ResolveDispute(rec domain.TransactionRecord, d DisputeDecision, now time.Time) (domain.TransactionRecord, error) {
	if rec.Status != domain.StatusDisputed {
		return rec, domain.Errorf(domain.KindInvalidState, "Transaction is not in disputed status")
	}

	switch d.Resolution {
	case domain.ResolutionRefund:
		rec.SetTerminal(domain.StatusCancelled, now)
		rec.DisputeStatus = domain.DisputeResolved
	case domain.ResolutionApprove:
		rec.SetTerminal(domain.StatusCompleted, now)
		rec.DisputeStatus = domain.DisputeResolved
	case domain.ResolutionPartialRefund:
		refund := d.PartialRefundAmount
		if refund == nil || !refund.IsPositive() || refund.GreaterThanOrEqual(rec.Amount) {
			return rec, domain.Errorf(domain.KindInvalidArgument, "Invalid partial refund amount")
		}
		rec.ManualAdjustment = refund.Neg()
		rec.AdjustmentReason = "Partial refund: dispute resolution"
		rec.AdjustmentAdminID = d.AdminID
		rec.AdjustmentAt = &now
		rec.RecomputeNet()
		rec.DisputeStatus = domain.DisputeResolved
	case domain.ResolutionInvestigation:
		rec.DisputeStatus = domain.DisputeUnderInvestigation
	default:
		return rec, domain.Errorf(domain.KindInvalidArgument, "Invalid resolution type: %s", d.Resolution)
	}

	rec.DisputeResolution = d.Resolution
	rec.ResolvedAt = &now
	stampAdmin(&rec, d.AdminID, d.AdminNotes, now)
	return rec, nil
}

// ApplyAction returns rec with a lifecycle action applied. rec itself is
// never modified.
func ApplyAction(rec domain.TransactionRecord, req ActionRequest, now time.Time) (domain.TransactionRecord, error) {
	switch req.Action {
	case ActionApprove:
		if rec.Status != domain.StatusPending {
			return rec, domain.Errorf(domain.KindInvalidState, "Only pending transactions can be approved")
		}
		rec.SetTerminal(domain.StatusCompleted, now)
	case ActionReject:
		if rec.Status != domain.StatusPending {
			return rec, domain.Errorf(domain.KindInvalidState, "Only pending transactions can be rejected")
		}
		rec.SetTerminal(domain.StatusFailed, now)
		rec.FailureReason = req.Reason
		if rec.FailureReason == "" {
			rec.FailureReason = defaultRejectReason
		}
	case ActionCancel:
		if rec.Status == domain.StatusCompleted {
			return rec, domain.Errorf(domain.KindInvalidState, "Completed transactions cannot be cancelled")
		}
		rec.SetTerminal(domain.StatusCancelled, now)
	case ActionMarkDisputed:
		rec.Status = domain.StatusDisputed
		rec.DisputedAt = &now
		rec.DisputeStatus = domain.DisputeOpen
		if req.Reason != "" {
			rec.DisputeReason = req.Reason
		}
	default:
		return rec, domain.Errorf(domain.KindInvalidArgument, "Invalid action: %s", req.Action)
	}

	notes := req.AdminNotes
	if notes == "" {
		notes = req.Reason
	}
	stampAdmin(&rec, req.AdminID, notes, now)
	return rec, nil
}

func stampAdmin(rec *domain.TransactionRecord, adminID, notes string, now time.Time) {
	rec.AdminID = adminID
	rec.AdminNotes = notes
	rec.AdminActionAt = &now
	rec.UpdatedAt = now
}
