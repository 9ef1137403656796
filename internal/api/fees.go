package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/fees"
)

type feeRequest struct {
	Amount   decimal.Decimal     `json:"amount"`
	FeeType  domain.FeeType      `json:"fee_type"`
	Currency string              `json:"currency"`
	Override *domain.FeeOverride `json:"override,omitempty"`
}

func (h *Handlers) CalculateFee(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.calc.CalculateFee(req.Amount, req.FeeType, orDefault(req.Currency), req.Override)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type bulkFeeRequest struct {
	Transactions []fees.BulkItem `json:"transactions"`
	Currency     string          `json:"currency"`
}

func (h *Handlers) CalculateBulkFee(w http.ResponseWriter, r *http.Request) {
	var req bulkFeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.calc.CalculateBulkFee(req.Transactions, orDefault(req.Currency))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type tieredFeeRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	FeeType  domain.FeeType  `json:"fee_type"`
	UserTier fees.UserTier   `json:"user_tier"`
	Currency string          `json:"currency"`
}

func (h *Handlers) CalculateTieredFee(w http.ResponseWriter, r *http.Request) {
	var req tieredFeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.calc.CalculateTieredFee(req.Amount, req.FeeType, req.UserTier, orDefault(req.Currency))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type internationalFeeRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	FeeType        domain.FeeType  `json:"fee_type"`
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
	Currency       string          `json:"currency"`
}

func (h *Handlers) CalculateInternationalFee(w http.ResponseWriter, r *http.Request) {
	var req internationalFeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if req.SourceCurrency == "" || req.TargetCurrency == "" {
		writeError(w, http.StatusBadRequest, "source_currency and target_currency are required")
		return
	}

	res, err := h.calc.CalculateInternationalFee(req.Amount, req.FeeType,
		req.SourceCurrency, req.TargetCurrency, orDefault(req.Currency))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ValidateFeeStructure(w http.ResponseWriter, r *http.Request) {
	var s domain.FeeStructure
	if err := decodeJSON(r, &s); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": fees.ValidateFeeStructure(s)})
}

func (h *Handlers) GetFeeSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.calc.Schedule())
}

func (h *Handlers) UpdateFeeConfig(w http.ResponseWriter, r *http.Request) {
	feeType := domain.FeeType(chi.URLParam(r, "feeType"))

	var override domain.FeeOverride
	if err := decodeJSON(r, &override); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	updated, err := h.calc.UpdateFeeConfig(feeType, override)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.logger.Info().
		Str("admin_id", adminID(r.Context())).
		Str("fee_type", string(feeType)).
		Msg("fee structure updated")
	writeJSON(w, http.StatusOK, updated)
}
