package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ratesPerUSD maps currency codes to the number of local currency units per 1 USD.
// Indicative rates only; they are used for reporting and conversion quotes,
// never for settlement.
var ratesPerUSD = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"VND": decimal.NewFromInt(25400),          // Vietnamese Dong
	"EUR": decimal.RequireFromString("0.92"),  // Euro
	"GBP": decimal.RequireFromString("0.79"),  // Pound Sterling
	"JPY": decimal.RequireFromString("151.6"), // Japanese Yen
	"KRW": decimal.NewFromInt(1370),           // South Korean Won
	"SGD": decimal.RequireFromString("1.35"),  // Singapore Dollar
}

// ToUSD converts a local currency amount to USD.
func ToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, err := Rate(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(rate), nil
}

// FromUSD converts a USD amount to local currency.
func FromUSD(usdAmount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, err := Rate(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return usdAmount.Mul(rate), nil
}

// Convert converts amount between two supported currencies through USD.
func Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	usd, err := ToUSD(amount, from)
	if err != nil {
		return decimal.Zero, err
	}
	return FromUSD(usd, to)
}

// Rate returns the exchange rate for a given currency (units per 1 USD).
func Rate(currency string) (decimal.Decimal, error) {
	rate, ok := ratesPerUSD[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("unsupported currency: %s", currency)
	}
	return rate, nil
}

// Supported reports whether a rate is known for currency.
func Supported(currency string) bool {
	_, ok := ratesPerUSD[currency]
	return ok
}
