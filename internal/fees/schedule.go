package fees

import (
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
)

// DefaultCurrency is the currency the built-in schedule is priced in.
const DefaultCurrency = "VND"

// Schedule maps each fee type to its structure. A Schedule held by a
// Calculator is never modified in place.
type Schedule map[domain.FeeType]domain.FeeStructure

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ceiling(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// DefaultSchedule returns the built-in fee table.
func DefaultSchedule() Schedule {
	return Schedule{
		domain.FeeTypeTransaction: {
			Percentage: dec("0.025"), FixedAmount: decimal.Zero,
			MinimumFee: dec("0.5"), MaximumFee: ceiling("100"), Currency: DefaultCurrency,
		},
		domain.FeeTypeWithdrawal: {
			Percentage: dec("0.01"), FixedAmount: dec("1"),
			MinimumFee: dec("1"), MaximumFee: ceiling("50"), Currency: DefaultCurrency,
		},
		domain.FeeTypeDeposit: {
			Percentage: decimal.Zero, FixedAmount: decimal.Zero,
			MinimumFee: decimal.Zero, Currency: DefaultCurrency,
		},
		domain.FeeTypeTransfer: {
			Percentage: dec("0.005"), FixedAmount: decimal.Zero,
			MinimumFee: dec("0.1"), MaximumFee: ceiling("20"), Currency: DefaultCurrency,
		},
		domain.FeeTypeDonation: {
			Percentage: dec("0.03"), FixedAmount: decimal.Zero,
			MinimumFee: dec("0.1"), Currency: DefaultCurrency,
		},
		domain.FeeTypeMonthlyMaintenance: {
			Percentage: decimal.Zero, FixedAmount: dec("5"),
			MinimumFee: dec("5"), Currency: DefaultCurrency,
		},
		domain.FeeTypeCurrencyConversion: {
			Percentage: dec("0.02"), FixedAmount: decimal.Zero,
			MinimumFee: dec("0.5"), Currency: DefaultCurrency,
		},
	}
}

func (s Schedule) clone() Schedule {
	out := make(Schedule, len(s))
	for k, v := range s {
		if v.MaximumFee != nil {
			m := *v.MaximumFee
			v.MaximumFee = &m
		}
		out[k] = v
	}
	return out
}

// Merge returns a copy of s with each override applied to its fee type.
// Unknown fee types and structures that fail validation are rejected.
func (s Schedule) Merge(overrides map[domain.FeeType]domain.FeeOverride) (Schedule, error) {
	out := s.clone()
	for feeType, o := range overrides {
		if !feeType.Valid() {
			return nil, domain.UnsupportedFeeType(feeType)
		}
		o := o
		merged := o.Apply(out[feeType])
		if !ValidateFeeStructure(merged) {
			return nil, domain.Errorf(domain.KindInvalidArgument, "invalid fee structure for %s", feeType)
		}
		out[feeType] = merged
	}
	return out, nil
}
