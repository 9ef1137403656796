// Package transactions implements the admin side of the transaction
// lifecycle: creation, queries, dispute resolution, manual adjustments,
// lifecycle actions, provider events and export.
package transactions

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/export"
	"github.com/xscan/payments/internal/fees"
	"github.com/xscan/payments/internal/repository"
)

type Service struct {
	store  Store
	calc   *fees.Calculator
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, calc *fees.Calculator, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		calc:   calc,
		logger: logger.With().Str("component", "transactions").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewTransaction is the input to Create. An empty Currency means VND.
type NewTransaction struct {
	UserID            string                 `json:"user_id"`
	RecipientID       string                 `json:"recipient_id,omitempty"`
	Type              domain.TransactionType `json:"type"`
	Amount            decimal.Decimal        `json:"amount"`
	Currency          string                 `json:"currency,omitempty"`
	PaymentMethod     domain.PaymentMethod   `json:"payment_method"`
	Description       string                 `json:"description,omitempty"`
	ExternalReference string                 `json:"external_reference,omitempty"`
}

// Create validates in, prices it with the fee calculator and stores a new
// pending transaction.
func (s *Service) Create(ctx context.Context, in NewTransaction) (*domain.TransactionRecord, error) {
	if in.UserID == "" {
		return nil, domain.Errorf(domain.KindInvalidArgument, "user_id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, domain.Errorf(domain.KindInvalidArgument, "amount must be greater than 0")
	}
	if !in.Type.Valid() {
		return nil, domain.Errorf(domain.KindInvalidArgument, "invalid transaction type: %s", in.Type)
	}
	if !in.PaymentMethod.Valid() {
		return nil, domain.Errorf(domain.KindInvalidArgument, "invalid payment method: %s", in.PaymentMethod)
	}
	if in.Currency == "" {
		in.Currency = fees.DefaultCurrency
	}
	if !domain.ValidCurrency(in.Currency) {
		return nil, domain.Errorf(domain.KindInvalidArgument, "unsupported currency: %s", in.Currency)
	}

	fee := decimal.Zero
	if feeType, ok := in.Type.FeeType(); ok {
		res, err := s.calc.CalculateFee(in.Amount, feeType, in.Currency, nil)
		if err != nil {
			return nil, err
		}
		fee = res.FeeAmount
	}

	now := s.now()
	rec := &domain.TransactionRecord{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		RecipientID:       in.RecipientID,
		Type:              in.Type,
		Amount:            in.Amount,
		Currency:          in.Currency,
		Status:            domain.StatusPending,
		PaymentMethod:     in.PaymentMethod,
		Description:       in.Description,
		ExternalReference: in.ExternalReference,
		FeeAmount:         fee,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	rec.RecomputeNet()

	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("transaction_id", rec.ID).
		Str("type", string(rec.Type)).
		Str("amount", rec.Amount.String()).
		Str("fee", rec.FeeAmount.String()).
		Msg("transaction created")
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f repository.TransactionFilter) ([]domain.TransactionRecord, int, error) {
	return s.store.List(ctx, f)
}

func (s *Service) Stats(ctx context.Context) (*repository.TransactionStats, error) {
	return s.store.Stats(ctx)
}

// HandleDispute resolves a disputed transaction.
func (s *Service) HandleDispute(ctx context.Context, id string, d DisputeDecision) (*domain.TransactionRecord, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ResolveDispute(*rec, d, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("transaction_id", id).
		Str("admin_id", d.AdminID).
		Str("resolution", string(d.Resolution)).
		Str("dispute_status", string(next.DisputeStatus)).
		Msg("dispute handled")
	return &next, nil
}

type AdjustmentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	AdminNotes string          `json:"admin_notes,omitempty"`
	AdminID    string          `json:"-"`
}

// ApplyAdjustment replaces the manual adjustment on a transaction. The
// adjustment may not exceed twice the transaction amount in either
// direction.
func (s *Service) ApplyAdjustment(ctx context.Context, id string, req AdjustmentRequest) (*domain.TransactionRecord, error) {
	if req.Reason == "" {
		return nil, domain.Errorf(domain.KindInvalidArgument, "adjustment reason is required")
	}
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Amount.Abs().GreaterThan(rec.Amount.Mul(decimal.NewFromInt(2))) {
		return nil, domain.Errorf(domain.KindInvalidArgument, "Adjustment amount cannot exceed 2x the transaction amount")
	}

	now := s.now()
	rec.ManualAdjustment = req.Amount
	rec.AdjustmentReason = req.Reason
	rec.AdjustmentAdminID = req.AdminID
	rec.AdjustmentAt = &now
	if req.AdminNotes != "" {
		rec.AdminNotes = req.AdminNotes
	}
	rec.UpdatedAt = now
	rec.RecomputeNet()

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("transaction_id", id).
		Str("admin_id", req.AdminID).
		Str("adjustment", req.Amount.String()).
		Str("net_amount", rec.NetAmount.String()).
		Msg("manual adjustment applied")
	return rec, nil
}

// PerformTransactionAction applies an admin lifecycle action.
func (s *Service) PerformTransactionAction(ctx context.Context, id string, req ActionRequest) (*domain.TransactionRecord, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ApplyAction(*rec, req, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("transaction_id", id).
		Str("admin_id", req.AdminID).
		Str("action", string(req.Action)).
		Str("status", string(next.Status)).
		Msg("transaction action")
	return &next, nil
}

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type BulkActionResult struct {
	Success []string      `json:"success"`
	Failed  []BulkFailure `json:"failed"`
}

// BulkAction applies action to each id in order. A failure is recorded and
// the batch moves on.
func (s *Service) BulkAction(ctx context.Context, ids []string, action Action, adminID, reason string) (BulkActionResult, error) {
	if len(ids) == 0 {
		return BulkActionResult{}, domain.Errorf(domain.KindInvalidArgument, "transaction_ids must not be empty")
	}

	result := BulkActionResult{Success: []string{}, Failed: []BulkFailure{}}
	for _, id := range ids {
		_, err := s.PerformTransactionAction(ctx, id, ActionRequest{
			Action:  action,
			Reason:  reason,
			AdminID: adminID,
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Success = append(result.Success, id)
	}

	s.logger.Info().
		Str("admin_id", adminID).
		Str("action", string(action)).
		Int("succeeded", len(result.Success)).
		Int("failed", len(result.Failed)).
		Msg("bulk action")
	return result, nil
}

// Export writes every record matching f to w. The format is checked before
// anything is read from the store.
func (s *Service) Export(ctx context.Context, f repository.TransactionFilter, format string, w io.Writer) (export.Format, error) {
	fmtr, err := export.ParseFormat(format)
	if err != nil {
		return "", err
	}
	recs, err := s.collect(ctx, f)
	if err != nil {
		return "", err
	}
	if err := export.Write(w, fmtr, recs); err != nil {
		return "", fmt.Errorf("write %s export: %w", fmtr, err)
	}
	s.logger.Info().Str("format", string(fmtr)).Int("rows", len(recs)).Msg("export")
	return fmtr, nil
}

func (s *Service) collect(ctx context.Context, f repository.TransactionFilter) ([]domain.TransactionRecord, error) {
	f.Page = 1
	f.Limit = repository.MaxPageLimit
	var all []domain.TransactionRecord
	for {
		page, total, err := s.store.List(ctx, f)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
		f.Page++
	}
}
