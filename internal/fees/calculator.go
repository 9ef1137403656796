// Package fees prices platform operations: single fees, volume discounted
// batches, user tier discounts and cross-currency fees.
//
// All calculations are pure. The fee schedule is held as an immutable
// snapshot that UpdateFeeConfig replaces atomically, so calculations never
// observe a half-applied update.
package fees

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/currency"
	"github.com/xscan/payments/internal/domain"
)

// UserTier selects the discount applied by CalculateTieredFee.
type UserTier string

const (
	TierStandard   UserTier = "standard"
	TierPremium    UserTier = "premium"
	TierEnterprise UserTier = "enterprise"
)

// BulkItem is one transaction priced inside a bulk calculation. An empty
// Currency means the batch currency.
type BulkItem struct {
	Amount   decimal.Decimal `json:"amount"`
	FeeType  domain.FeeType  `json:"fee_type"`
	Currency string          `json:"currency,omitempty"`
}

var (
	bulkDiscountLarge   = dec("0.10")
	bulkDiscountMedium  = dec("0.05")
	premiumDiscount     = dec("0.15")
	enterpriseDiscount  = dec("0.30")
	bulkLargeThreshold  = 5
	bulkMediumThreshold = 3
)

type Calculator struct {
	mu       sync.Mutex // serializes writers
	schedule atomic.Pointer[Schedule]
}

// NewCalculator returns a calculator pricing against a private copy of
// schedule.
func NewCalculator(schedule Schedule) *Calculator {
	c := &Calculator{}
	s := schedule.clone()
	c.schedule.Store(&s)
	return c
}

// Schedule returns a copy of the current fee schedule.
func (c *Calculator) Schedule() Schedule {
	return c.snapshot().clone()
}

func (c *Calculator) snapshot() Schedule {
	return *c.schedule.Load()
}

// UpdateFeeConfig merges override into the structure for feeType and swaps
// in the new schedule. The current schedule is left untouched when the
// merged structure is invalid.
func (c *Calculator) UpdateFeeConfig(feeType domain.FeeType, override domain.FeeOverride) (domain.FeeStructure, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.snapshot().Merge(map[domain.FeeType]domain.FeeOverride{feeType: override})
	if err != nil {
		return domain.FeeStructure{}, err
	}
	c.schedule.Store(&next)
	return next[feeType], nil
}

// CalculateFee prices a single operation of feeType on amount. A non-nil
// override is shallow-merged over the configured structure.
func (c *Calculator) CalculateFee(amount decimal.Decimal, feeType domain.FeeType, cur string, override *domain.FeeOverride) (domain.FeeResult, error) {
	if !amount.IsPositive() {
		return domain.FeeResult{}, domain.Errorf(domain.KindInvalidArgument, "amount must be greater than 0")
	}
	base, ok := c.snapshot()[feeType]
	if !ok {
		return domain.FeeResult{}, domain.UnsupportedFeeType(feeType)
	}
	structure := override.Apply(base)
	if !ValidateFeeStructure(structure) {
		return domain.FeeResult{}, domain.Errorf(domain.KindInvalidArgument, "invalid fee structure for %s", feeType)
	}

	breakdown := computeBreakdown(amount, structure)
	return domain.FeeResult{
		BaseAmount:   amount,
		FeeAmount:    breakdown.AdjustedFee,
		TotalAmount:  amount.Add(breakdown.AdjustedFee),
		FeeBreakdown: breakdown,
		Currency:     cur,
		FeeType:      feeType,
		Description:  describe(feeType, breakdown.AdjustedFee, cur),
	}, nil
}

// CalculateBulkFee prices a batch and applies a volume discount to the
// summed fee: 10% from five items, 5% from three.
func (c *Calculator) CalculateBulkFee(items []BulkItem, cur string) (domain.FeeResult, error) {
	if len(items) == 0 {
		return domain.FeeResult{}, domain.Errorf(domain.KindInvalidArgument, "bulk calculation requires at least one transaction")
	}

	var (
		baseSum, feeSum      decimal.Decimal
		percentSum, fixedSum decimal.Decimal
	)
	feeType := items[0].FeeType
	for i, item := range items {
		itemCur := item.Currency
		if itemCur == "" {
			itemCur = cur
		}
		res, err := c.CalculateFee(item.Amount, item.FeeType, itemCur, nil)
		if err != nil {
			return domain.FeeResult{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		baseSum = baseSum.Add(res.BaseAmount)
		feeSum = feeSum.Add(res.FeeAmount)
		percentSum = percentSum.Add(res.FeeBreakdown.PercentageFee)
		fixedSum = fixedSum.Add(res.FeeBreakdown.FixedFee)
		if item.FeeType != feeType {
			feeType = domain.FeeTypeTransaction
		}
	}

	rate := volumeDiscountRate(len(items))
	discount := feeSum.Mul(rate)
	finalFee := feeSum.Sub(discount)

	return domain.FeeResult{
		BaseAmount:  baseSum,
		FeeAmount:   finalFee,
		TotalAmount: baseSum.Add(finalFee),
		FeeBreakdown: domain.FeeBreakdown{
			PercentageFee: percentSum,
			FixedFee:      fixedSum,
			AdjustedFee:   finalFee,
		},
		Currency:         cur,
		FeeType:          feeType,
		Description:      fmt.Sprintf("Bulk %s (%d transactions)", describe(feeType, finalFee, cur), len(items)),
		TransactionCount: len(items),
		Discount:         &domain.Discount{Percentage: rate, Amount: discount},
	}, nil
}

func volumeDiscountRate(count int) decimal.Decimal {
	switch {
	case count >= bulkLargeThreshold:
		return bulkDiscountLarge
	case count >= bulkMediumThreshold:
		return bulkDiscountMedium
	}
	return decimal.Zero
}

// CalculateTieredFee applies the user tier discount on top of the standard
// fee. Unrecognized tiers get no discount.
func (c *Calculator) CalculateTieredFee(amount decimal.Decimal, feeType domain.FeeType, tier UserTier, cur string) (domain.FeeResult, error) {
	res, err := c.CalculateFee(amount, feeType, cur, nil)
	if err != nil {
		return domain.FeeResult{}, err
	}

	rate := tierDiscountRate(tier)
	discount := res.FeeAmount.Mul(rate)
	discounted := res.FeeAmount.Sub(discount)

	res.FeeAmount = discounted
	res.TotalAmount = amount.Add(discounted)
	res.FeeBreakdown.AdjustedFee = discounted
	res.Discount = &domain.Discount{Percentage: rate, Amount: discount}
	res.Description = describe(feeType, discounted, cur)
	if tier == TierPremium || tier == TierEnterprise {
		res.Description = fmt.Sprintf("%s (%s tier)", res.Description, tier)
	}
	return res, nil
}

func tierDiscountRate(tier UserTier) decimal.Decimal {
	switch tier {
	case TierPremium:
		return premiumDiscount
	case TierEnterprise:
		return enterpriseDiscount
	}
	return decimal.Zero
}

// CalculateInternationalFee adds a currency conversion fee on the same
// amount to the base fee. The breakdown sums both fixed components but
// reports only the base fee's percentage component; the conversion
// percentage is carried in Conversion.
func (c *Calculator) CalculateInternationalFee(amount decimal.Decimal, feeType domain.FeeType, source, target, cur string) (domain.FeeResult, error) {
	base, err := c.CalculateFee(amount, feeType, cur, nil)
	if err != nil {
		return domain.FeeResult{}, err
	}
	conv, err := c.CalculateFee(amount, domain.FeeTypeCurrencyConversion, cur, nil)
	if err != nil {
		return domain.FeeResult{}, err
	}

	total := base.FeeAmount.Add(conv.FeeAmount)
	conversion := &domain.Conversion{
		SourceCurrency: source,
		TargetCurrency: target,
		Fee:            conv.FeeAmount,
		PercentageFee:  conv.FeeBreakdown.PercentageFee,
		FixedFee:       conv.FeeBreakdown.FixedFee,
	}
	if converted, err := currency.Convert(amount, source, target); err == nil {
		conversion.ConvertedAmount = &converted
	}

	return domain.FeeResult{
		BaseAmount:  amount,
		FeeAmount:   total,
		TotalAmount: amount.Add(total),
		FeeBreakdown: domain.FeeBreakdown{
			PercentageFee: base.FeeBreakdown.PercentageFee,
			FixedFee:      base.FeeBreakdown.FixedFee.Add(conv.FeeBreakdown.FixedFee),
			AdjustedFee:   total,
		},
		Currency:    cur,
		FeeType:     feeType,
		Description: fmt.Sprintf("International %s (%s to %s)", describe(feeType, total, cur), source, target),
		Conversion:  conversion,
	}, nil
}

// computeBreakdown clamps percentage + fixed fee into [minimum, maximum].
func computeBreakdown(amount decimal.Decimal, s domain.FeeStructure) domain.FeeBreakdown {
	percentageFee := amount.Mul(s.Percentage)
	adjusted := decimal.Max(percentageFee.Add(s.FixedAmount), s.MinimumFee)
	if s.MaximumFee != nil {
		adjusted = decimal.Min(adjusted, *s.MaximumFee)
	}
	return domain.FeeBreakdown{
		PercentageFee: percentageFee,
		FixedFee:      s.FixedAmount,
		AdjustedFee:   adjusted,
	}
}

func describe(feeType domain.FeeType, fee decimal.Decimal, cur string) string {
	return fmt.Sprintf("%s fee: %s %s", feeType.DisplayName(), FormatAmount(fee), cur)
}

// FormatAmount renders amount with thousands separators and two decimals.
func FormatAmount(amount decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", amount.Round(2).InexactFloat64())
}
