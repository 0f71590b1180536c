// internal/storage/recorder.go
package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// Recorder subscribes a Storage to the platform event bus and maps each
// event to its durable record. Persistence failures are logged, never
// propagated back into the trading path.
type Recorder struct {
	store  Storage
	logger *zap.Logger
}

func NewRecorder(store Storage, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.Named("recorder")}
}

// Attach registers the recorder on the bus.
func (r *Recorder) Attach(bus *events.Bus) {
	bus.SubscribeFunc(events.TypeTokenCreated, r.onTokenCreated)
	bus.SubscribeFunc(events.TypeTrade, r.onTrade)
	bus.SubscribeFunc(events.TypeGraduated, r.onGraduated)
	bus.SubscribeFunc(events.TypeFundsSplit, r.onFundsSplit)
	bus.SubscribeFunc(events.TypeLiquidityAdded, r.onLiquidityAdded)
	bus.SubscribeFunc(events.TypeLPWithdrawn, r.onLPWithdrawn)
}

func (r *Recorder) onTokenCreated(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.TokenCreatedEvent)
	if !ok {
		return nil
	}
	err := r.store.SaveToken(ctx, &models.TokenRecord{
		Mint:        ev.TokenAddress.String(),
		Engine:      ev.EngineAddress.String(),
		Creator:     ev.CreatorAddress.String(),
		Name:        ev.Name,
		Symbol:      ev.Symbol,
		TotalSupply: ev.TotalSupply,
	})
	if err != nil {
		r.logger.Error("Failed to persist token", zap.Error(err))
	}
	return nil
}

func (r *Recorder) onTrade(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.TradeEvent)
	if !ok {
		return nil
	}
	err := r.store.SaveTrade(ctx, &models.TradeRecord{
		Engine:       ev.EngineAddress.String(),
		Trader:       ev.Trader.String(),
		Direction:    string(ev.Direction),
		NativeAmount: ev.NativeAmount,
		TokenAmount:  ev.TokenAmount,
		Price:        ev.Price,
		Fee:          ev.Fee,
		Sequence:     ev.Sequence,
		ExecutedAt:   ev.Timestamp(),
	})
	if err != nil {
		r.logger.Error("Failed to persist trade", zap.Error(err))
	}
	return nil
}

func (r *Recorder) onGraduated(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.GraduatedEvent)
	if !ok {
		return nil
	}
	err := r.store.SaveGraduation(ctx, &models.GraduationRecord{
		Mint:            ev.TokenAddress.String(),
		FinalSupply:     ev.FinalSupply,
		SnapshotBalance: ev.SnapshotBalance,
		GraduatedAt:     ev.Timestamp(),
	})
	if err != nil {
		r.logger.Error("Failed to persist graduation", zap.Error(err))
	}
	return nil
}

func (r *Recorder) onFundsSplit(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.FundsSplitEvent)
	if !ok {
		return nil
	}
	err := r.store.UpdateGraduationSplit(ctx, ev.TokenAddress.String(), ev.CreatorShare, ev.PlatformShare)
	if err != nil {
		r.logger.Error("Failed to persist funds split", zap.Error(err))
	}
	return nil
}

func (r *Recorder) onLiquidityAdded(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.LiquidityAddedEvent)
	if !ok {
		return nil
	}
	err := r.store.UpdateGraduationLiquidity(ctx,
		ev.TokenAddress.String(),
		ev.LiquidityReceiptAddress.String(),
		ev.LiquidityReceiptQty)
	if err != nil {
		r.logger.Error("Failed to persist liquidity receipt", zap.Error(err))
	}
	return nil
}

func (r *Recorder) onLPWithdrawn(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.LPWithdrawnEvent)
	if !ok {
		return nil
	}
	if err := r.store.MarkLPWithdrawn(ctx, ev.TokenAddress.String()); err != nil {
		r.logger.Error("Failed to persist lp withdrawal", zap.Error(err))
	}
	return nil
}
