package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestErrorIs(t *testing.T) {
	t.Parallel()

	err := UnsupportedFeeType("subscription")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("Expected unsupported fee type to match ErrInvalidArgument")
	}
	if !errors.Is(err, ErrUnsupportedFeeType) {
		t.Error("Expected unsupported fee type to match ErrUnsupportedFeeType")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Did not expect unsupported fee type to match ErrNotFound")
	}

	plain := Errorf(KindInvalidArgument, "amount must be greater than 0")
	if errors.Is(plain, ErrUnsupportedFeeType) {
		t.Error("Plain invalid argument must not match a coded sentinel")
	}

	wrapped := fmt.Errorf("transaction 2: %w", Errorf(KindInvalidState, "Completed transactions cannot be cancelled"))
	if !errors.Is(wrapped, ErrInvalidState) {
		t.Error("Expected wrapped error to match ErrInvalidState")
	}
	if kind, ok := KindOf(wrapped); !ok || kind != KindInvalidState {
		t.Errorf("Expected kind %s, got %s (%v)", KindInvalidState, kind, ok)
	}
	if _, ok := KindOf(errors.New("boom")); ok {
		t.Error("Expected no kind for a plain error")
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := Errorf(KindInvalidState, "Only pending transactions can be approved")
	if err.Error() != "Only pending transactions can be approved" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if ErrNotFound.Error() != "not_found" {
		t.Errorf("Expected bare sentinel to print its kind, got %q", ErrNotFound.Error())
	}
}

func TestFeeOverrideApply(t *testing.T) {
	t.Parallel()

	ceiling := decimal.NewFromInt(20)
	base := FeeStructure{
		Percentage:  decimal.RequireFromString("0.005"),
		MinimumFee:  decimal.RequireFromString("0.1"),
		MaximumFee:  &ceiling,
		Currency:    "VND",
		FixedAmount: decimal.Zero,
	}

	var nilOverride *FeeOverride
	if got := nilOverride.Apply(base); !got.Percentage.Equal(base.Percentage) {
		t.Errorf("Expected nil override to return base, got %+v", got)
	}

	pct := decimal.RequireFromString("0.01")
	newMax := decimal.NewFromInt(5)
	cur := "USD"
	got := (&FeeOverride{Percentage: &pct, MaximumFee: &newMax, Currency: &cur}).Apply(base)
	if !got.Percentage.Equal(pct) {
		t.Errorf("Expected percentage %s, got %s", pct, got.Percentage)
	}
	if !got.MinimumFee.Equal(base.MinimumFee) {
		t.Errorf("Expected minimum unchanged, got %s", got.MinimumFee)
	}
	if got.Currency != "USD" || !got.MaximumFee.Equal(newMax) {
		t.Errorf("Unexpected merged structure %+v", got)
	}

	newMax = decimal.NewFromInt(99)
	if got.MaximumFee.Equal(newMax) {
		t.Error("Merged structure must not alias the override's maximum")
	}
	if !base.MaximumFee.Equal(decimal.NewFromInt(20)) {
		t.Error("Base structure must not be modified")
	}
}

func TestTransactionTypeFeeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		txType TransactionType
		want   FeeType
		ok     bool
	}{
		{TypeDonation, FeeTypeDonation, true},
		{TypeWithdrawal, FeeTypeWithdrawal, true},
		{TypeTransfer, FeeTypeTransfer, true},
		{TypeRefund, "", false},
		{TypeFee, "", false},
	}
	for _, tt := range tests {
		got, ok := tt.txType.FeeType()
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s: expected (%s, %v), got (%s, %v)", tt.txType, tt.want, tt.ok, got, ok)
		}
	}
}

func TestSetTerminal(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &TransactionRecord{Status: StatusPending}

	rec.SetTerminal(StatusCompleted, now)
	if rec.Status != StatusCompleted || rec.CompletedAt == nil || !rec.CompletedAt.Equal(now) {
		t.Fatalf("Expected completed at %v, got %+v", now, rec)
	}

	later := now.Add(time.Hour)
	rec.SetTerminal(StatusCancelled, later)
	if rec.CompletedAt != nil || rec.FailedAt != nil {
		t.Error("Expected other terminal timestamps to be cleared")
	}
	if rec.CancelledAt == nil || !rec.CancelledAt.Equal(later) {
		t.Errorf("Expected cancelled at %v, got %v", later, rec.CancelledAt)
	}
}

func TestRecomputeNet(t *testing.T) {
	t.Parallel()

	rec := &TransactionRecord{
		Amount:           decimal.NewFromInt(100),
		FeeAmount:        decimal.NewFromInt(3),
		ManualAdjustment: decimal.RequireFromString("-1.5"),
	}
	rec.RecomputeNet()
	if !rec.NetAmount.Equal(decimal.RequireFromString("95.5")) {
		t.Errorf("Expected net 95.5, got %s", rec.NetAmount)
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []TransactionStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}
	for _, s := range []TransactionStatus{StatusPending, StatusProcessing, StatusDisputed} {
		if s.Terminal() {
			t.Errorf("Expected %s not to be terminal", s)
		}
	}
}
