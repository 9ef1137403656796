// Package seed generates synthetic transactions for local development and
// demos.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/currency"
	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/fees"
)

const (
	users    = 50
	creators = 20
	days     = 14
)

var methods = []domain.PaymentMethod{
	domain.PaymentStripe, domain.PaymentPayPal, domain.PaymentWallet, domain.PaymentBankTransfer,
}

// Generate returns n transactions created over the fortnight starting at
// start. The output depends only on the state of rng.
func Generate(rng *rand.Rand, calc *fees.Calculator, n int, start time.Time) ([]domain.TransactionRecord, error) {
	out := make([]domain.TransactionRecord, 0, n)
	for i := 0; i < n; i++ {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}

		txType := pickType(rng)
		cur := pickCurrency(rng)
		amount := pickAmount(rng, cur)

		createdAt := start.Add(time.Duration(rng.Intn(days*24*60)) * time.Minute)
		rec := domain.TransactionRecord{
			ID:            id.String(),
			UserID:        fmt.Sprintf("user-%03d", rng.Intn(users)+1),
			Type:          txType,
			Amount:        amount,
			Currency:      cur,
			Status:        domain.StatusPending,
			PaymentMethod: methods[rng.Intn(len(methods))],
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		}
		if txType == domain.TypeDonation || txType == domain.TypeTransfer {
			rec.RecipientID = fmt.Sprintf("creator-%03d", rng.Intn(creators)+1)
		}

		if feeType, ok := txType.FeeType(); ok {
			res, err := calc.CalculateFee(amount, feeType, cur, nil)
			if err != nil {
				return nil, fmt.Errorf("price transaction %d: %w", i, err)
			}
			rec.FeeAmount = res.FeeAmount
		}
		rec.RecomputeNet()

		applyStatus(rng, &rec)
		out = append(out, rec)
	}
	return out, nil
}

// Type mix: 60% donation, 20% withdrawal, 10% transfer, 5% refund, 5% fee.
func pickType(rng *rand.Rand) domain.TransactionType {
	roll := rng.Float64()
	switch {
	case roll < 0.60:
		return domain.TypeDonation
	case roll < 0.80:
		return domain.TypeWithdrawal
	case roll < 0.90:
		return domain.TypeTransfer
	case roll < 0.95:
		return domain.TypeRefund
	}
	return domain.TypeFee
}

// 70% VND, the rest spread over the other supported currencies.
func pickCurrency(rng *rand.Rand) string {
	if rng.Float64() < 0.70 {
		return "VND"
	}
	others := domain.Currencies[1:]
	return others[rng.Intn(len(others))]
}

// Amounts are drawn between 5 and 500 USD and quoted in cur: whole
// thousands for VND, two decimals otherwise.
func pickAmount(rng *rand.Rand, cur string) decimal.Decimal {
	usd := decimal.NewFromFloat(5 + rng.Float64()*495).Round(2)
	local, err := currency.FromUSD(usd, cur)
	if err != nil {
		return usd
	}
	if cur == "VND" {
		return local.Div(decimal.NewFromInt(1000)).Round(0).Mul(decimal.NewFromInt(1000))
	}
	return local.Round(2)
}

// Status mix: 80% completed, 8% pending, 4% processing, 4% failed,
// 2% cancelled, 2% disputed.
func applyStatus(rng *rand.Rand, rec *domain.TransactionRecord) {
	settled := rec.CreatedAt.Add(time.Duration(rng.Intn(120)+1) * time.Minute)
	roll := rng.Float64()
	switch {
	case roll < 0.80:
		rec.SetTerminal(domain.StatusCompleted, settled)
	case roll < 0.88:
		return
	case roll < 0.92:
		rec.Status = domain.StatusProcessing
	case roll < 0.96:
		rec.SetTerminal(domain.StatusFailed, settled)
		rec.FailureReason = "Card declined"
	case roll < 0.98:
		rec.SetTerminal(domain.StatusCancelled, settled)
	default:
		rec.Status = domain.StatusDisputed
		rec.DisputedAt = &settled
		rec.DisputeStatus = domain.DisputeOpen
		rec.DisputeReason = "Item not received"
	}
	rec.UpdatedAt = settled
}
