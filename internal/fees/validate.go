package fees

import (
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
)

// ValidateFeeStructure reports whether s is a usable pricing rule: the
// percentage lies in [0, 1], fixed and minimum fees are non-negative and a
// maximum, when present, is not below the minimum.
func ValidateFeeStructure(s domain.FeeStructure) bool {
	if s.Percentage.IsNegative() || s.Percentage.GreaterThan(decimal.NewFromInt(1)) {
		return false
	}
	if s.FixedAmount.IsNegative() || s.MinimumFee.IsNegative() {
		return false
	}
	if s.MaximumFee != nil && s.MaximumFee.LessThan(s.MinimumFee) {
		return false
	}
	return true
}
