// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// Storage persists the platform event surface. The core never depends on it
// for correctness: it is an indexer-style sink fed from the event bus.
type Storage interface {
	SaveToken(ctx context.Context, rec *models.TokenRecord) error
	SaveTrade(ctx context.Context, rec *models.TradeRecord) error
	SaveGraduation(ctx context.Context, rec *models.GraduationRecord) error
	UpdateGraduationSplit(ctx context.Context, mint string, creatorShare, platformShare uint64) error
	UpdateGraduationLiquidity(ctx context.Context, mint, lpToken string, lpLocked uint64) error
	MarkLPWithdrawn(ctx context.Context, mint string) error

	ListTokens(ctx context.Context, limit, offset int) ([]*models.TokenRecord, error)
	ListTrades(ctx context.Context, engine string, limit, offset int) ([]*models.TradeRecord, error)
	GetGraduation(ctx context.Context, mint string) (*models.GraduationRecord, error)

	RunMigrations() error
	Close() error
}
