package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/fees"
	"github.com/xscan/payments/internal/transactions"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	txSvc  *transactions.Service
	calc   *fees.Calculator
	logger zerolog.Logger
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

var timeNow = time.Now

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(err error) int {
	kind, ok := domain.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case domain.KindInvalidArgument, domain.KindInvalidState, domain.KindUnsupportedFormat:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindNotImplemented:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// writeDomainError writes err with the status for its kind. Errors without
// a kind are logged and reported as internal errors.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal server error")
		return
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Code != "" {
		writeJSON(w, status, map[string]string{"error": err.Error(), "code": de.Code})
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Errorf(domain.KindInvalidArgument, "invalid request body: %v", err)
	}
	return nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, domain.Errorf(domain.KindInvalidArgument, "invalid amount %q", s)
	}
	return &d, nil
}

func orDefault(cur string) string {
	if cur == "" {
		return fees.DefaultCurrency
	}
	return cur
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
