package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/fees"
	"github.com/xscan/payments/internal/repository"
	"github.com/xscan/payments/internal/transactions"
)

type testServer struct {
	handler http.Handler
	repo    *repository.TransactionRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repository.NewTransactionRepo(db, zerolog.Nop())
	calc := fees.NewCalculator(fees.DefaultSchedule())
	svc := transactions.NewService(repo, calc, zerolog.Nop())
	return &testServer{handler: NewRouter(svc, calc, zerolog.Nop()), repo: repo}
}

func (s *testServer) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if admin {
		req.Header.Set(AdminHeader, "admin-1")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, id string, status domain.TransactionStatus) {
	t.Helper()
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	rec := domain.TransactionRecord{
		ID:            id,
		UserID:        "user-1",
		Type:          domain.TypeDonation,
		Amount:        decimal.NewFromInt(100),
		Currency:      "VND",
		Status:        status,
		PaymentMethod: domain.PaymentStripe,
		FeeAmount:     decimal.NewFromInt(3),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	rec.RecomputeNet()
	if err := s.repo.Insert(context.Background(), &rec); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Response is not a JSON object: %q (%v)", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "ok" {
		t.Errorf("Expected status ok, got %v", got)
	}
}

func TestFeeEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantField  string
		wantValue  any
	}{
		{"calculate", "/api/v1/fees/calculate", `{"amount":100,"fee_type":"donation"}`, 200, "fee_amount", "3"},
		{"calculate string amount", "/api/v1/fees/calculate", `{"amount":"100","fee_type":"donation","currency":"USD"}`, 200, "currency", "USD"},
		{"calculate override", "/api/v1/fees/calculate", `{"amount":100,"fee_type":"donation","override":{"percentage":0.05}}`, 200, "fee_amount", "5"},
		{"calculate zero amount", "/api/v1/fees/calculate", `{"amount":0,"fee_type":"donation"}`, 400, "error", "amount must be greater than 0"},
		{"calculate unknown type", "/api/v1/fees/calculate", `{"amount":10,"fee_type":"gift"}`, 400, "code", domain.CodeUnsupportedFeeType},
		{"calculate bad json", "/api/v1/fees/calculate", `{"amount":`, 400, "", nil},
		{"bulk", "/api/v1/fees/bulk", `{"transactions":[{"amount":50,"fee_type":"donation"},{"amount":50,"fee_type":"donation"},{"amount":50,"fee_type":"donation"}]}`, 200, "fee_amount", "4.275"},
		{"bulk empty", "/api/v1/fees/bulk", `{"transactions":[]}`, 400, "", nil},
		{"tiered", "/api/v1/fees/tiered", `{"amount":100,"fee_type":"donation","user_tier":"enterprise"}`, 200, "fee_amount", "2.1"},
		{"international", "/api/v1/fees/international", `{"amount":1000,"fee_type":"transaction","source_currency":"USD","target_currency":"EUR"}`, 200, "fee_amount", "45"},
		{"international missing currencies", "/api/v1/fees/international", `{"amount":1000,"fee_type":"transaction"}`, 400, "", nil},
		{"validate ok", "/api/v1/fees/validate", `{"percentage":0.1,"fixed_amount":0,"minimum_fee":1,"maximum_fee":5}`, 200, "valid", true},
		{"validate bad", "/api/v1/fees/validate", `{"percentage":1.5,"fixed_amount":0,"minimum_fee":0}`, 200, "valid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body, false)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantField == "" {
				return
			}
			body := decodeBody(t, rec)
			if body[tt.wantField] != tt.wantValue {
				t.Errorf("Expected %s=%v, got %v", tt.wantField, tt.wantValue, body[tt.wantField])
			}
		})
	}
}

func TestAdminRequiresHeader(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/admin/fees", "/api/v1/admin/transactions", "/api/v1/admin/transactions/stats"} {
		rec := s.do(t, http.MethodGet, path, "", false)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", path, rec.Code)
		}
	}
}

func TestFeeScheduleAdmin(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/fees", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if _, ok := decodeBody(t, rec)["donation"]; !ok {
		t.Error("Expected donation in schedule")
	}

	rec = s.do(t, http.MethodPut, "/api/v1/admin/fees/transaction", `{"minimum_fee":500}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for minimum above maximum, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/admin/fees/donation", `{"percentage":0.04}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/fees/calculate", `{"amount":100,"fee_type":"donation"}`, false)
	if got := decodeBody(t, rec)["fee_amount"]; got != "4" {
		t.Errorf("Expected updated fee 4, got %v", got)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/transactions",
		`{"user_id":"u1","type":"donation","amount":100,"payment_method":"stripe"}`, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	id, _ := created["id"].(string)
	if id == "" || created["net_amount"] != "97" {
		t.Fatalf("Unexpected created record %v", created)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/webhooks/stripe", `{"transaction_id":"`+id+`","event":"payment.succeeded"}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from webhook, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/admin/transactions/"+id, "", true)
	if rec.Code != http.StatusOK || decodeBody(t, rec)["status"] != "completed" {
		t.Fatalf("Expected completed transaction, got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/transactions/"+id+"/action", `{"action":"approve"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 approving completed, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Only pending transactions can be approved" {
		t.Errorf("Unexpected error %v", got)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/transactions/"+id+"/action", `{"action":"mark_disputed","reason":"chargeback"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/transactions/"+id+"/dispute", `{"resolution":"partial_refund","partial_refund_amount":30}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["manual_adjustment"] != "-30" || body["admin_id"] != "admin-1" || body["status"] != "disputed" {
		t.Errorf("Unexpected dispute result %v", body)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/transactions/"+id+"/adjustment", `{"amount":500,"reason":"too big"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized adjustment, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/transactions/"+id+"/adjustment", `{"amount":-10,"reason":"fee refund"}`, true)
	if rec.Code != http.StatusOK || decodeBody(t, rec)["net_amount"] != "87" {
		t.Errorf("Expected net 87 after adjustment, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestTransactionNotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/transactions/missing", "", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/v1/admin/transactions/missing/action", `{"action":"cancel"}`, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestBulkActionEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.seed(t, "id1", domain.StatusPending)
	s.seed(t, "id2", domain.StatusCompleted)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/transactions/bulk-action",
		`{"transaction_ids":["id1","id2"],"action":"cancel"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res transactions.BulkActionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Success) != 1 || res.Success[0] != "id1" {
		t.Errorf("Expected success [id1], got %v", res.Success)
	}
	if len(res.Failed) != 1 || res.Failed[0].Reason != "Completed transactions cannot be cancelled" {
		t.Errorf("Unexpected failures %+v", res.Failed)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/transactions/bulk-action", `{"transaction_ids":[],"action":"cancel"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty ids, got %d", rec.Code)
	}
}

func TestListAndStats(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.seed(t, "a", domain.StatusPending)
	s.seed(t, "b", domain.StatusCompleted)
	s.seed(t, "c", domain.StatusPending)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/transactions?status=pending&limit=1", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["total"] != float64(2) || body["total_pages"] != float64(2) {
		t.Errorf("Unexpected paging %v", body)
	}
	if txns, _ := body["transactions"].([]any); len(txns) != 1 {
		t.Errorf("Expected 1 transaction on page, got %v", body["transactions"])
	}

	rec = s.do(t, http.MethodGet, "/api/v1/admin/transactions?min_amount=abc", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad min_amount, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/admin/transactions/stats", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["total"] != float64(3) {
		t.Errorf("Expected total 3, got %s", rec.Body.String())
	}
}

func TestExportEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.seed(t, "a", domain.StatusPending)

	rec := s.do(t, http.MethodGet, "/api/v1/admin/transactions/export", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;") {
		t.Errorf("Expected attachment disposition, got %q", rec.Header().Get("Content-Disposition"))
	}
	if lines := bytes.Count(rec.Body.Bytes(), []byte("\n")); lines != 2 {
		t.Errorf("Expected header plus one row, got %d lines", lines)
	}

	tests := map[string]int{
		"json":  http.StatusOK,
		"pdf":   http.StatusNotImplemented,
		"excel": http.StatusNotImplemented,
		"xml":   http.StatusBadRequest,
	}
	for format, want := range tests {
		rec := s.do(t, http.MethodGet, "/api/v1/admin/transactions/export?format="+format, "", true)
		if rec.Code != want {
			t.Errorf("format %s: expected %d, got %d", format, want, rec.Code)
		}
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{domain.Errorf(domain.KindInvalidArgument, "x"), http.StatusBadRequest},
		{domain.Errorf(domain.KindInvalidState, "x"), http.StatusBadRequest},
		{domain.Errorf(domain.KindUnsupportedFormat, "x"), http.StatusBadRequest},
		{domain.Errorf(domain.KindNotFound, "x"), http.StatusNotFound},
		{domain.Errorf(domain.KindNotImplemented, "x"), http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v): expected %d, got %d", tt.err, tt.want, got)
		}
	}
}
