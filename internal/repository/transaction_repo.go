package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xscan/payments/internal/currency"
	"github.com/xscan/payments/internal/domain"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500

	// UTC with fixed fractional width, so stored values sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

const transactionColumns = `id, user_id, recipient_id, type, amount, currency, status,
	payment_method, description, external_reference, processing_fee, fee_amount,
	net_amount, manual_adjustment, adjustment_reason, adjustment_admin_id,
	adjustment_at, dispute_status, dispute_resolution, dispute_reason,
	failure_reason, admin_id, admin_notes, created_at, updated_at, completed_at,
	failed_at, cancelled_at, disputed_at, resolved_at, admin_action_at`

type TransactionRepo struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewTransactionRepo(db *sql.DB, logger zerolog.Logger) *TransactionRepo {
	return &TransactionRepo{
		db:     db,
		logger: logger.With().Str("component", "transaction_repo").Logger(),
	}
}

func (r *TransactionRepo) Insert(ctx context.Context, tx *domain.TransactionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		tx.ID, tx.UserID, tx.RecipientID, string(tx.Type), tx.Amount, tx.Currency,
		string(tx.Status), string(tx.PaymentMethod), tx.Description, tx.ExternalReference,
		tx.ProcessingFee, tx.FeeAmount, tx.NetAmount, tx.ManualAdjustment,
		tx.AdjustmentReason, tx.AdjustmentAdminID, formatNullableTime(tx.AdjustmentAt),
		string(tx.DisputeStatus), string(tx.DisputeResolution), tx.DisputeReason,
		tx.FailureReason, tx.AdminID, tx.AdminNotes,
		formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt),
		formatNullableTime(tx.CompletedAt), formatNullableTime(tx.FailedAt),
		formatNullableTime(tx.CancelledAt), formatNullableTime(tx.DisputedAt),
		formatNullableTime(tx.ResolvedAt), formatNullableTime(tx.AdminActionAt),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", tx.ID).Msg("insert failed")
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// BulkInsert writes all records in one database transaction. Existing ids
// are skipped. It returns the number of rows inserted.
func (r *TransactionRepo) BulkInsert(ctx context.Context, txns []domain.TransactionRecord) (int, error) {
	inserted := 0
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range txns {
		tx := &txns[i]
		res, err := stmt.ExecContext(ctx,
			tx.ID, tx.UserID, tx.RecipientID, string(tx.Type), tx.Amount, tx.Currency,
			string(tx.Status), string(tx.PaymentMethod), tx.Description, tx.ExternalReference,
			tx.ProcessingFee, tx.FeeAmount, tx.NetAmount, tx.ManualAdjustment,
			tx.AdjustmentReason, tx.AdjustmentAdminID, formatNullableTime(tx.AdjustmentAt),
			string(tx.DisputeStatus), string(tx.DisputeResolution), tx.DisputeReason,
			tx.FailureReason, tx.AdminID, tx.AdminNotes,
			formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt),
			formatNullableTime(tx.CompletedAt), formatNullableTime(tx.FailedAt),
			formatNullableTime(tx.CancelledAt), formatNullableTime(tx.DisputedAt),
			formatNullableTime(tx.ResolvedAt), formatNullableTime(tx.AdminActionAt),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	r.logger.Info().Int("inserted", inserted).Int("submitted", len(txns)).Msg("bulk insert")
	return inserted, nil
}

// GetByID returns the record with id, or a domain not found error.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "transaction %s not found", id)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", id).Msg("get failed")
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// Update overwrites every mutable column of the record in a single
// statement. Concurrent updates to the same row are last write wins.
func (r *TransactionRepo) Update(ctx context.Context, tx *domain.TransactionRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET
			recipient_id = ?, status = ?, description = ?, external_reference = ?,
			processing_fee = ?, fee_amount = ?, net_amount = ?, manual_adjustment = ?,
			adjustment_reason = ?, adjustment_admin_id = ?, adjustment_at = ?,
			dispute_status = ?, dispute_resolution = ?, dispute_reason = ?,
			failure_reason = ?, admin_id = ?, admin_notes = ?, updated_at = ?,
			completed_at = ?, failed_at = ?, cancelled_at = ?, disputed_at = ?,
			resolved_at = ?, admin_action_at = ?
		WHERE id = ?`,
		tx.RecipientID, string(tx.Status), tx.Description, tx.ExternalReference,
		tx.ProcessingFee, tx.FeeAmount, tx.NetAmount, tx.ManualAdjustment,
		tx.AdjustmentReason, tx.AdjustmentAdminID, formatNullableTime(tx.AdjustmentAt),
		string(tx.DisputeStatus), string(tx.DisputeResolution), tx.DisputeReason,
		tx.FailureReason, tx.AdminID, tx.AdminNotes, formatTime(tx.UpdatedAt),
		formatNullableTime(tx.CompletedAt), formatNullableTime(tx.FailedAt),
		formatNullableTime(tx.CancelledAt), formatNullableTime(tx.DisputedAt),
		formatNullableTime(tx.ResolvedAt), formatNullableTime(tx.AdminActionAt),
		tx.ID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", tx.ID).Msg("update failed")
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.KindNotFound, "transaction %s not found", tx.ID)
	}
	return nil
}

func (r *TransactionRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

type TransactionFilter struct {
	Status        domain.TransactionStatus
	Type          domain.TransactionType
	PaymentMethod domain.PaymentMethod
	Currency      string
	UserID        string
	RecipientID   string
	DisputeStatus domain.DisputeStatus
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	From          *time.Time
	To            *time.Time
	SortBy        string // created_at (default), amount, status
	SortOrder     string // desc (default), asc
	Page          int
	Limit         int
}

// Normalize fills in paging defaults and caps the limit.
func (f *TransactionFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

var sortColumns = map[string]string{
	"":           "created_at",
	"created_at": "created_at",
	"amount":     "CAST(amount AS REAL)",
	"status":     "status",
}

// List returns one page of records matching f and the total match count.
func (r *TransactionRepo) List(ctx context.Context, f TransactionFilter) ([]domain.TransactionRecord, int, error) {
	f.Normalize()
	orderCol, ok := sortColumns[f.SortBy]
	if !ok {
		return nil, 0, domain.Errorf(domain.KindInvalidArgument, "invalid sort field: %s", f.SortBy)
	}
	var direction string
	switch strings.ToLower(f.SortOrder) {
	case "", "desc":
		direction = "DESC"
	case "asc":
		direction = "ASC"
	default:
		return nil, 0, domain.Errorf(domain.KindInvalidArgument, "invalid sort order: %s", f.SortOrder)
	}

	where, args := buildTransactionWhere(f)

	var total int
	countSQL := "SELECT COUNT(*) FROM transactions" + where
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("count failed")
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	querySQL := "SELECT " + transactionColumns + " FROM transactions" + where +
		" ORDER BY " + orderCol + " " + direction + ", id " + direction + " LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("list failed")
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.TransactionRecord
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *tx)
	}
	return txns, total, rows.Err()
}

type CurrencyVolume struct {
	Currency  string          `json:"currency"`
	Count     int             `json:"count"`
	Volume    decimal.Decimal `json:"volume"`
	VolumeUSD decimal.Decimal `json:"volume_usd"`
}

// TransactionStats holds aggregate figures for the admin dashboard. Volume,
// fee and adjustment totals are summed in the transactions' own currencies;
// ByCurrency and TotalVolumeUSD give the per-currency split.
type TransactionStats struct {
	Total            int                              `json:"total"`
	ByStatus         map[domain.TransactionStatus]int `json:"by_status"`
	TotalVolume      decimal.Decimal                  `json:"total_volume"`
	TotalFees        decimal.Decimal                  `json:"total_fees"`
	TotalAdjustments decimal.Decimal                  `json:"total_adjustments"`
	OpenDisputes     int                              `json:"open_disputes"`
	TotalVolumeUSD   decimal.Decimal                  `json:"total_volume_usd"`
	ByCurrency       []CurrencyVolume                 `json:"by_currency"`
}

// Stats aggregates over all records. Sums are done on decimals in Go since
// SQLite would coerce the text columns to floating point.
func (r *TransactionRepo) Stats(ctx context.Context) (*TransactionStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, currency, amount, fee_amount, manual_adjustment, dispute_status
		FROM transactions ORDER BY currency
	`)
	if err != nil {
		r.logger.Error().Err(err).Msg("stats failed")
		return nil, fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()

	s := &TransactionStats{ByStatus: make(map[domain.TransactionStatus]int)}
	byCurrency := make(map[string]*CurrencyVolume)
	var order []string

	for rows.Next() {
		var (
			status, cur, dispute    string
			amount, fee, adjustment decimal.Decimal
		)
		if err := rows.Scan(&status, &cur, &amount, &fee, &adjustment, &dispute); err != nil {
			return nil, fmt.Errorf("stats scan: %w", err)
		}
		s.Total++
		s.ByStatus[domain.TransactionStatus(status)]++
		s.TotalVolume = s.TotalVolume.Add(amount)
		s.TotalFees = s.TotalFees.Add(fee)
		s.TotalAdjustments = s.TotalAdjustments.Add(adjustment)
		switch domain.DisputeStatus(dispute) {
		case domain.DisputeOpen, domain.DisputeUnderInvestigation:
			s.OpenDisputes++
		}

		cv, ok := byCurrency[cur]
		if !ok {
			cv = &CurrencyVolume{Currency: cur}
			byCurrency[cur] = cv
			order = append(order, cur)
		}
		cv.Count++
		cv.Volume = cv.Volume.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, cur := range order {
		cv := byCurrency[cur]
		if usd, err := currency.ToUSD(cv.Volume, cur); err == nil {
			cv.VolumeUSD = usd.Round(2)
			s.TotalVolumeUSD = s.TotalVolumeUSD.Add(cv.VolumeUSD)
		} else {
			r.logger.Warn().Str("currency", cur).Msg("no rate for currency; excluded from USD volume")
		}
		s.ByCurrency = append(s.ByCurrency, *cv)
	}
	return s, nil
}

// --- helpers ---

func buildTransactionWhere(f TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	eq := func(col, val string) {
		if val != "" {
			clauses = append(clauses, col+" = ?")
			args = append(args, val)
		}
	}
	eq("status", string(f.Status))
	eq("type", string(f.Type))
	eq("payment_method", string(f.PaymentMethod))
	eq("currency", f.Currency)
	eq("user_id", f.UserID)
	eq("recipient_id", f.RecipientID)
	eq("dispute_status", string(f.DisputeStatus))

	if f.MinAmount != nil {
		clauses = append(clauses, "CAST(amount AS REAL) >= ?")
		args = append(args, f.MinAmount.InexactFloat64())
	}
	if f.MaxAmount != nil {
		clauses = append(clauses, "CAST(amount AS REAL) <= ?")
		args = append(args, f.MaxAmount.InexactFloat64())
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, formatTime(*f.To))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.TransactionRecord, error) {
	var (
		tx                                          domain.TransactionRecord
		txType, status, method, dispute, resolution string
		createdAt, updatedAt                        string
		adjustmentAt, completedAt, failedAt         sql.NullString
		cancelledAt, disputedAt, resolvedAt         sql.NullString
		adminActionAt                               sql.NullString
	)

	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.RecipientID, &txType, &tx.Amount, &tx.Currency, &status,
		&method, &tx.Description, &tx.ExternalReference, &tx.ProcessingFee, &tx.FeeAmount,
		&tx.NetAmount, &tx.ManualAdjustment, &tx.AdjustmentReason, &tx.AdjustmentAdminID,
		&adjustmentAt, &dispute, &resolution, &tx.DisputeReason,
		&tx.FailureReason, &tx.AdminID, &tx.AdminNotes, &createdAt, &updatedAt, &completedAt,
		&failedAt, &cancelledAt, &disputedAt, &resolvedAt, &adminActionAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Type = domain.TransactionType(txType)
	tx.Status = domain.TransactionStatus(status)
	tx.PaymentMethod = domain.PaymentMethod(method)
	tx.DisputeStatus = domain.DisputeStatus(dispute)
	tx.DisputeResolution = domain.DisputeResolution(resolution)
	tx.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	tx.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	tx.AdjustmentAt = parseNullableTime(adjustmentAt)
	tx.CompletedAt = parseNullableTime(completedAt)
	tx.FailedAt = parseNullableTime(failedAt)
	tx.CancelledAt = parseNullableTime(cancelledAt)
	tx.DisputedAt = parseNullableTime(disputedAt)
	tx.ResolvedAt = parseNullableTime(resolvedAt)
	tx.AdminActionAt = parseNullableTime(adminActionAt)

	return &tx, nil
}
