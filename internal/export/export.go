// Package export renders transaction records for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xscan/payments/internal/domain"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
)

// ParseFormat accepts csv and json. pdf and excel are recognized but not
// implemented; anything else is unsupported.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatJSON:
		return f, nil
	case FormatPDF, FormatExcel:
		return "", domain.Errorf(domain.KindNotImplemented, "%s export not implemented yet", strings.ToUpper(string(f)))
	}
	return "", domain.Errorf(domain.KindUnsupportedFormat, "Unsupported export format: %s", s)
}

func ContentType(f Format) string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// FileName is the download name for an export taken at t.
func FileName(f Format, t time.Time) string {
	return fmt.Sprintf("transactions-%s.%s", t.UTC().Format("20060102-150405"), f)
}

var csvHeader = []string{
	"id", "user_id", "recipient_id", "type", "amount", "currency", "status",
	"payment_method", "fee_amount", "processing_fee", "manual_adjustment",
	"net_amount", "dispute_status", "dispute_resolution", "admin_id",
	"external_reference", "created_at", "updated_at", "completed_at",
}

// Write renders recs to w in format f.
func Write(w io.Writer, f Format, recs []domain.TransactionRecord) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, recs)
	case FormatJSON:
		if recs == nil {
			recs = []domain.TransactionRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	_, err := ParseFormat(string(f))
	return err
}

func writeCSV(w io.Writer, recs []domain.TransactionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range recs {
		r := &recs[i]
		if err := cw.Write([]string{
			r.ID, r.UserID, r.RecipientID, string(r.Type), r.Amount.String(), r.Currency,
			string(r.Status), string(r.PaymentMethod), r.FeeAmount.String(),
			r.ProcessingFee.String(), r.ManualAdjustment.String(), r.NetAmount.String(),
			string(r.DisputeStatus), string(r.DisputeResolution), r.AdminID,
			r.ExternalReference, formatTime(&r.CreatedAt), formatTime(&r.UpdatedAt),
			formatTime(r.CompletedAt),
		}); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
