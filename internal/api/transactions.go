package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/export"
	"github.com/xscan/payments/internal/repository"
	"github.com/xscan/payments/internal/transactions"
)

func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactions.NewTransaction
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	rec, err := h.txSvc.Create(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) ProviderWebhook(w http.ResponseWriter, r *http.Request) {
	var ev transactions.ProviderEvent
	if err := decodeJSON(r, &ev); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ev.Provider = chi.URLParam(r, "provider")

	rec, err := h.txSvc.ApplyProviderEvent(r.Context(), ev)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func filterFromQuery(r *http.Request) (repository.TransactionFilter, error) {
	q := r.URL.Query()
	minAmount, err := parseDecimal(q.Get("min_amount"))
	if err != nil {
		return repository.TransactionFilter{}, err
	}
	maxAmount, err := parseDecimal(q.Get("max_amount"))
	if err != nil {
		return repository.TransactionFilter{}, err
	}

	f := repository.TransactionFilter{
		Status:        domain.TransactionStatus(q.Get("status")),
		Type:          domain.TransactionType(q.Get("type")),
		PaymentMethod: domain.PaymentMethod(q.Get("payment_method")),
		Currency:      q.Get("currency"),
		UserID:        q.Get("user_id"),
		RecipientID:   q.Get("recipient_id"),
		DisputeStatus: domain.DisputeStatus(q.Get("dispute_status")),
		MinAmount:     minAmount,
		MaxAmount:     maxAmount,
		From:          parseTime(q.Get("from")),
		To:            parseTime(q.Get("to")),
		SortBy:        q.Get("sort_by"),
		SortOrder:     q.Get("sort_order"),
		Page:          parseIntDefault(q.Get("page"), 1),
		Limit:         parseIntDefault(q.Get("limit"), repository.DefaultPageLimit),
	}
	f.Normalize()
	return f, nil
}

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	txns, total, err := h.txSvc.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if txns == nil {
		txns = []domain.TransactionRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
		"total_pages":  (total + filter.Limit - 1) / filter.Limit,
	})
}

func (h *Handlers) GetTransactionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.txSvc.Stats(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(export.FormatCSV)
	}

	// Buffered so that a failure part way through still yields a clean
	// error response.
	var buf bytes.Buffer
	f, err := h.txSvc.Export(r.Context(), filter, format, &buf)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(f))
	w.Header().Set("Content-Disposition", contentDisposition(export.FileName(f, timeNow())))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn().Err(err).Msg("export write interrupted")
	}
}

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	rec, err := h.txSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) HandleDispute(w http.ResponseWriter, r *http.Request) {
	var req transactions.DisputeDecision
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	req.AdminID = adminID(r.Context())

	rec, err := h.txSvc.HandleDispute(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) ApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	var req transactions.AdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	req.AdminID = adminID(r.Context())

	rec, err := h.txSvc.ApplyAdjustment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) PerformTransactionAction(w http.ResponseWriter, r *http.Request) {
	var req transactions.ActionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	req.AdminID = adminID(r.Context())

	rec, err := h.txSvc.PerformTransactionAction(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type bulkActionRequest struct {
	TransactionIDs []string            `json:"transaction_ids"`
	Action         transactions.Action `json:"action"`
	Reason         string              `json:"reason,omitempty"`
}

func (h *Handlers) BulkAction(w http.ResponseWriter, r *http.Request) {
	var req bulkActionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res, err := h.txSvc.BulkAction(r.Context(), req.TransactionIDs, req.Action, adminID(r.Context()), req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
