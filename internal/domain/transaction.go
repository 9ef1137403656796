package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeDonation   TransactionType = "donation"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeRefund     TransactionType = "refund"
	TypeFee        TransactionType = "fee"
	TypeTransfer   TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeDonation, TypeWithdrawal, TypeRefund, TypeFee, TypeTransfer:
		return true
	}
	return false
}

// FeeType returns the fee charged when a transaction of this type is
// created. Refunds and fee transactions carry no fee.
func (t TransactionType) FeeType() (FeeType, bool) {
	switch t {
	case TypeDonation:
		return FeeTypeDonation, true
	case TypeWithdrawal:
		return FeeTypeWithdrawal, true
	case TypeTransfer:
		return FeeTypeTransfer, true
	}
	return "", false
}

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusDisputed   TransactionStatus = "disputed"
	StatusCancelled  TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusDisputed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is completed, failed or cancelled.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentStripe       PaymentMethod = "stripe"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentWallet       PaymentMethod = "wallet"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentStripe, PaymentPayPal, PaymentWallet, PaymentBankTransfer:
		return true
	}
	return false
}

type DisputeStatus string

const (
	DisputeOpen               DisputeStatus = "open"
	DisputeUnderInvestigation DisputeStatus = "under_investigation"
	DisputeResolved           DisputeStatus = "resolved"
	DisputeClosed             DisputeStatus = "closed"
)

type DisputeResolution string

const (
	ResolutionRefund        DisputeResolution = "refund"
	ResolutionApprove       DisputeResolution = "approve"
	ResolutionPartialRefund DisputeResolution = "partial_refund"
	ResolutionInvestigation DisputeResolution = "investigation"
)

// Supported transaction currencies.
var Currencies = []string{"VND", "USD", "EUR", "GBP", "JPY", "KRW", "SGD"}

func ValidCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}

// TransactionRecord is a payment moving through the platform. Records are
// never deleted; every change is a state or field update.
type TransactionRecord struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	RecipientID       string            `json:"recipient_id,omitempty"`
	Type              TransactionType   `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Status            TransactionStatus `json:"status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Description       string            `json:"description,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`

	ProcessingFee    decimal.Decimal `json:"processing_fee"`
	FeeAmount        decimal.Decimal `json:"fee_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	ManualAdjustment decimal.Decimal `json:"manual_adjustment"`

	AdjustmentReason  string     `json:"adjustment_reason,omitempty"`
	AdjustmentAdminID string     `json:"adjustment_admin_id,omitempty"`
	AdjustmentAt      *time.Time `json:"adjustment_at,omitempty"`

	DisputeStatus     DisputeStatus     `json:"dispute_status,omitempty"`
	DisputeResolution DisputeResolution `json:"dispute_resolution,omitempty"`
	DisputeReason     string            `json:"dispute_reason,omitempty"`
	FailureReason     string            `json:"failure_reason,omitempty"`

	AdminID    string `json:"admin_id,omitempty"`
	AdminNotes string `json:"admin_notes,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	DisputedAt    *time.Time `json:"disputed_at,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	AdminActionAt *time.Time `json:"admin_action_at,omitempty"`
}

// RecomputeNet sets NetAmount = Amount - FeeAmount + ManualAdjustment.
func (t *TransactionRecord) RecomputeNet() {
	t.NetAmount = t.Amount.Sub(t.FeeAmount).Add(t.ManualAdjustment)
}

// SetTerminal moves the record into a terminal status, stamping the
// matching timestamp and clearing the other two so that exactly one
// terminal timestamp is set.
func (t *TransactionRecord) SetTerminal(status TransactionStatus, at time.Time) {
	t.Status = status
	t.CompletedAt, t.FailedAt, t.CancelledAt = nil, nil, nil
	switch status {
	case StatusCompleted:
		t.CompletedAt = &at
	case StatusFailed:
		t.FailedAt = &at
	case StatusCancelled:
		t.CancelledAt = &at
	}
}
