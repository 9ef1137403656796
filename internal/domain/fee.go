package domain

import "github.com/shopspring/decimal"

type FeeType string

const (
	FeeTypeTransaction        FeeType = "transaction"
	FeeTypeWithdrawal         FeeType = "withdrawal"
	FeeTypeDeposit            FeeType = "deposit"
	FeeTypeTransfer           FeeType = "transfer"
	FeeTypeDonation           FeeType = "donation"
	FeeTypeMonthlyMaintenance FeeType = "monthly_maintenance"
	FeeTypeCurrencyConversion FeeType = "currency_conversion"
)

var feeTypeNames = map[FeeType]string{
	FeeTypeTransaction:        "Transaction",
	FeeTypeWithdrawal:         "Withdrawal",
	FeeTypeDeposit:            "Deposit",
	FeeTypeTransfer:           "Transfer",
	FeeTypeDonation:           "Donation",
	FeeTypeMonthlyMaintenance: "Monthly maintenance",
	FeeTypeCurrencyConversion: "Currency conversion",
}

// FeeTypes lists every fee type in a stable order.
func FeeTypes() []FeeType {
	return []FeeType{
		FeeTypeTransaction,
		FeeTypeWithdrawal,
		FeeTypeDeposit,
		FeeTypeTransfer,
		FeeTypeDonation,
		FeeTypeMonthlyMaintenance,
		FeeTypeCurrencyConversion,
	}
}

func (t FeeType) Valid() bool {
	_, ok := feeTypeNames[t]
	return ok
}

// DisplayName is the label used in fee descriptions.
func (t FeeType) DisplayName() string {
	if name, ok := feeTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// FeeStructure is the pricing rule for one fee type.
type FeeStructure struct {
	Percentage  decimal.Decimal  `json:"percentage"`
	FixedAmount decimal.Decimal  `json:"fixed_amount"`
	MinimumFee  decimal.Decimal  `json:"minimum_fee"`
	MaximumFee  *decimal.Decimal `json:"maximum_fee,omitempty"`
	Currency    string           `json:"currency"`
}

// FeeOverride is a partial FeeStructure. Set fields replace the base value.
type FeeOverride struct {
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
	FixedAmount *decimal.Decimal `json:"fixed_amount,omitempty"`
	MinimumFee  *decimal.Decimal `json:"minimum_fee,omitempty"`
	MaximumFee  *decimal.Decimal `json:"maximum_fee,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
}

// Apply returns base with the override's set fields copied over it.
func (o *FeeOverride) Apply(base FeeStructure) FeeStructure {
	if o == nil {
		return base
	}
	merged := base
	if o.Percentage != nil {
		merged.Percentage = *o.Percentage
	}
	if o.FixedAmount != nil {
		merged.FixedAmount = *o.FixedAmount
	}
	if o.MinimumFee != nil {
		merged.MinimumFee = *o.MinimumFee
	}
	if o.MaximumFee != nil {
		ceiling := *o.MaximumFee
		merged.MaximumFee = &ceiling
	}
	if o.Currency != nil {
		merged.Currency = *o.Currency
	}
	return merged
}

type FeeBreakdown struct {
	PercentageFee decimal.Decimal `json:"percentage_fee"`
	FixedFee      decimal.Decimal `json:"fixed_fee"`
	AdjustedFee   decimal.Decimal `json:"adjusted_fee"`
}

// Discount records a volume or tier reduction applied to a fee.
type Discount struct {
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Conversion carries the currency conversion part of an international fee.
// PercentageFee is reported here because the breakdown only carries the
// base fee's percentage component.
type Conversion struct {
	SourceCurrency  string           `json:"source_currency"`
	TargetCurrency  string           `json:"target_currency"`
	Fee             decimal.Decimal  `json:"fee"`
	PercentageFee   decimal.Decimal  `json:"percentage_fee"`
	FixedFee        decimal.Decimal  `json:"fixed_fee"`
	ConvertedAmount *decimal.Decimal `json:"converted_amount,omitempty"`
}

type FeeResult struct {
	BaseAmount       decimal.Decimal `json:"base_amount"`
	FeeAmount        decimal.Decimal `json:"fee_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	FeeBreakdown     FeeBreakdown    `json:"fee_breakdown"`
	Currency         string          `json:"currency"`
	FeeType          FeeType         `json:"fee_type"`
	Description      string          `json:"description"`
	TransactionCount int             `json:"transaction_count,omitempty"`
	Discount         *Discount       `json:"discount,omitempty"`
	Conversion       *Conversion     `json:"conversion,omitempty"`
}
