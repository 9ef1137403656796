package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/domain"
)

var baseTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *TransactionRepo {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTransactionRepo(db, zerolog.Nop())
}

func record(id string, amount string, status domain.TransactionStatus, offset time.Duration) domain.TransactionRecord {
	rec := domain.TransactionRecord{
		ID:            id,
		UserID:        "user-1",
		RecipientID:   "creator-1",
		Type:          domain.TypeDonation,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "VND",
		Status:        status,
		PaymentMethod: domain.PaymentStripe,
		FeeAmount:     decimal.RequireFromString(amount).Mul(decimal.RequireFromString("0.03")),
		CreatedAt:     baseTime.Add(offset),
		UpdatedAt:     baseTime.Add(offset),
	}
	rec.RecomputeNet()
	return rec
}

func TestInsertAndGetByID(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := record("tx-1", "100.50", domain.StatusCompleted, 0)
	completed := baseTime.Add(time.Minute)
	rec.CompletedAt = &completed
	rec.Description = "coffee"
	rec.ManualAdjustment = decimal.RequireFromString("-2.25")
	rec.RecomputeNet()

	if err := repo.Insert(ctx, &rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Amount.Equal(rec.Amount) || !got.NetAmount.Equal(rec.NetAmount) {
		t.Errorf("Expected amount %s net %s, got %s net %s", rec.Amount, rec.NetAmount, got.Amount, got.NetAmount)
	}
	if !got.ManualAdjustment.Equal(decimal.RequireFromString("-2.25")) {
		t.Errorf("Expected adjustment -2.25, got %s", got.ManualAdjustment)
	}
	if got.Status != domain.StatusCompleted || got.Type != domain.TypeDonation || got.PaymentMethod != domain.PaymentStripe {
		t.Errorf("Enum fields did not round trip: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("Expected created at %v, got %v", rec.CreatedAt, got.CreatedAt)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("Expected completed at %v, got %v", completed, got.CompletedAt)
	}
	if got.FailedAt != nil || got.DisputedAt != nil {
		t.Error("Expected unset timestamps to stay nil")
	}
	if got.Description != "coffee" {
		t.Errorf("Expected description coffee, got %q", got.Description)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := record("tx-dup", "10", domain.StatusPending, 0)
	if err := repo.Insert(ctx, &rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Insert(ctx, &rec); err == nil {
		t.Error("Expected duplicate id insert to fail")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := record("tx-u", "200", domain.StatusPending, 0)
	if err := repo.Insert(ctx, &rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	at := baseTime.Add(time.Hour)
	rec.SetTerminal(domain.StatusCancelled, at)
	rec.AdminID = "admin-7"
	rec.AdminNotes = "duplicate charge"
	rec.AdminActionAt = &at
	rec.UpdatedAt = at
	if err := repo.Update(ctx, &rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "tx-u")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.StatusCancelled || got.CancelledAt == nil || !got.CancelledAt.Equal(at) {
		t.Errorf("Expected cancelled at %v, got %s %v", at, got.Status, got.CancelledAt)
	}
	if got.AdminID != "admin-7" || got.AdminNotes != "duplicate charge" {
		t.Errorf("Admin fields not persisted: %+v", got)
	}

	missing := record("nope", "1", domain.StatusPending, 0)
	if err := repo.Update(ctx, &missing); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected not found for unknown id, got %v", err)
	}
}

func seed(t *testing.T, repo *TransactionRepo) {
	t.Helper()
	recs := []domain.TransactionRecord{
		record("a", "100", domain.StatusCompleted, 0),
		record("b", "5", domain.StatusPending, time.Hour),
		record("c", "2500", domain.StatusDisputed, 2*time.Hour),
		record("d", "40", domain.StatusFailed, 3*time.Hour),
		record("e", "75", domain.StatusPending, 4*time.Hour),
	}
	recs[1].PaymentMethod = domain.PaymentPayPal
	recs[2].DisputeStatus = domain.DisputeOpen
	recs[3].Currency = "USD"
	recs[4].UserID = "user-2"
	recs[4].Type = domain.TypeWithdrawal

	n, err := repo.BulkInsert(context.Background(), recs)
	if err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}
	if n != len(recs) {
		t.Fatalf("Expected %d inserted, got %d", len(recs), n)
	}
}

func ids(recs []domain.TransactionRecord) string {
	var s string
	for _, r := range recs {
		s += r.ID
	}
	return s
}

func TestList(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	seed(t, repo)

	minAmount := decimal.NewFromInt(50)
	from := baseTime.Add(90 * time.Minute)

	tests := []struct {
		name      string
		filter    TransactionFilter
		wantIDs   string
		wantTotal int
	}{
		{"default newest first", TransactionFilter{}, "edcba", 5},
		{"status", TransactionFilter{Status: domain.StatusPending}, "eb", 2},
		{"type", TransactionFilter{Type: domain.TypeWithdrawal}, "e", 1},
		{"payment method", TransactionFilter{PaymentMethod: domain.PaymentPayPal}, "b", 1},
		{"currency", TransactionFilter{Currency: "USD"}, "d", 1},
		{"user", TransactionFilter{UserID: "user-2"}, "e", 1},
		{"dispute status", TransactionFilter{DisputeStatus: domain.DisputeOpen}, "c", 1},
		{"min amount", TransactionFilter{MinAmount: &minAmount}, "eca", 3},
		{"from", TransactionFilter{From: &from}, "edc", 3},
		{"amount ascending", TransactionFilter{SortBy: "amount", SortOrder: "asc"}, "bdeac", 5},
		{"paged", TransactionFilter{Limit: 2, Page: 2}, "cb", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if ids(got) != tt.wantIDs {
				t.Errorf("Expected ids %s, got %s", tt.wantIDs, ids(got))
			}
			if total != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, total)
			}
		})
	}
}

func TestListRejectsBadSort(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)

	if _, _, err := repo.List(context.Background(), TransactionFilter{SortBy: "amount; DROP TABLE transactions"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Expected invalid argument for unknown sort field, got %v", err)
	}
	if _, _, err := repo.List(context.Background(), TransactionFilter{SortOrder: "sideways"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Expected invalid argument for unknown sort order, got %v", err)
	}
}

func TestFilterNormalize(t *testing.T) {
	t.Parallel()

	f := TransactionFilter{Limit: 10000}
	f.Normalize()
	if f.Limit != MaxPageLimit || f.Page != 1 {
		t.Errorf("Expected limit %d page 1, got %d page %d", MaxPageLimit, f.Limit, f.Page)
	}

	f = TransactionFilter{}
	f.Normalize()
	if f.Limit != DefaultPageLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultPageLimit, f.Limit)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	seed(t, repo)

	s, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if s.Total != 5 {
		t.Errorf("Expected total 5, got %d", s.Total)
	}
	if s.ByStatus[domain.StatusPending] != 2 || s.ByStatus[domain.StatusCompleted] != 1 {
		t.Errorf("Unexpected status counts %v", s.ByStatus)
	}
	if !s.TotalVolume.Equal(decimal.NewFromInt(2720)) {
		t.Errorf("Expected volume 2720, got %s", s.TotalVolume)
	}
	if !s.TotalFees.Equal(decimal.RequireFromString("81.6")) {
		t.Errorf("Expected fees 81.6, got %s", s.TotalFees)
	}
	if s.OpenDisputes != 1 {
		t.Errorf("Expected 1 open dispute, got %d", s.OpenDisputes)
	}
	if len(s.ByCurrency) != 2 {
		t.Fatalf("Expected 2 currencies, got %d", len(s.ByCurrency))
	}
	usd := s.ByCurrency[0]
	if usd.Currency != "USD" || !usd.VolumeUSD.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Unexpected USD bucket %+v", usd)
	}
}

func TestStatsEmpty(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)

	s, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if s.Total != 0 || !s.TotalVolume.IsZero() || len(s.ByCurrency) != 0 {
		t.Errorf("Expected empty stats, got %+v", s)
	}
}

func TestBulkInsertSkipsExisting(t *testing.T) {
	t.Parallel()
	repo := newTestRepo(t)
	ctx := context.Background()

	var recs []domain.TransactionRecord
	for i := 0; i < 3; i++ {
		recs = append(recs, record(fmt.Sprintf("bulk-%d", i), "10", domain.StatusPending, time.Duration(i)*time.Second))
	}
	if _, err := repo.BulkInsert(ctx, recs); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}
	n, err := repo.BulkInsert(ctx, recs)
	if err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 new rows, got %d", n)
	}
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 rows, got %d", count)
	}
}
