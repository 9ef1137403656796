package transactions

import (
	"context"

	"github.com/xscan/payments/internal/domain"
	"github.com/xscan/payments/internal/repository"
)

// Store persists transaction records. GetByID and Update report a missing
// record with a domain not found error.
type Store interface {
	Insert(ctx context.Context, tx *domain.TransactionRecord) error
	GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error)
	Update(ctx context.Context, tx *domain.TransactionRecord) error
	List(ctx context.Context, f repository.TransactionFilter) ([]domain.TransactionRecord, int, error)
	Stats(ctx context.Context) (*repository.TransactionStats, error)
}
