// internal/graduation/controller.go
package graduation

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/bank"
	"github.com/rovshanmuradov/launchpad/internal/engine"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/liquidity"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

// SplitConfig is the three-way reserve split at graduation, in basis points.
// The platform takes the remainder, which also absorbs integer rounding so
// the three shares always sum to the snapshot exactly.
type SplitConfig struct {
	LiquidityBps uint64
	CreatorBps   uint64
}

func (s SplitConfig) Validate() error {
	if s.LiquidityBps+s.CreatorBps > 10_000 {
		return fmt.Errorf("split exceeds 100%%: liquidity %d bps + creator %d bps", s.LiquidityBps, s.CreatorBps)
	}
	if s.LiquidityBps == 0 {
		return fmt.Errorf("liquidity share must be positive")
	}
	return nil
}

// Split divides a reserve snapshot. liquidity + creator + platform == reserve.
func (s SplitConfig) Split(reserve uint64) (liquidityAmt, creatorAmt, platformAmt uint64) {
	liquidityAmt = reserve * s.LiquidityBps / 10_000
	creatorAmt = reserve * s.CreatorBps / 10_000
	platformAmt = reserve - liquidityAmt - creatorAmt
	return
}

// Record is the per-token graduation outcome kept for queries.
type Record struct {
	TokenMint       solana.PublicKey
	FinalSupply     uint64
	SnapshotBalance uint64
	CreatorShare    uint64
	PlatformShare   uint64
	LiquidityAmount uint64
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Split       SplitConfig
	Platform    solana.PublicKey
	Bank        *bank.Ledger
	Pull        *PullLedger
	Provisioner *liquidity.Provisioner
	Bus         *events.Bus
	Logger      *zap.Logger
}

// Controller executes the one-time graduation fund split. The engine's
// checked-and-set on its graduated flag guarantees each handler runs at
// most once per token; the controller itself is stateless apart from the
// records it keeps for queries.
type Controller struct {
	mu          sync.RWMutex
	split       SplitConfig
	platform    solana.PublicKey
	bank        *bank.Ledger
	pull        *PullLedger
	provisioner *liquidity.Provisioner
	bus         *events.Bus
	logger      *zap.Logger

	records map[solana.PublicKey]Record
}

func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		split:       cfg.Split,
		platform:    cfg.Platform,
		bank:        cfg.Bank,
		pull:        cfg.Pull,
		provisioner: cfg.Provisioner,
		bus:         cfg.Bus,
		logger:      cfg.Logger.Named("graduation"),
		records:     make(map[solana.PublicKey]Record),
	}
}

// HandlerFor binds the controller to one token ledger, producing the
// GraduateFunc the engine fires at the threshold crossing. It runs with the
// engine lock held; the fallible external liquidity call goes first so a
// failure aborts before any ledger credit.
func (c *Controller) HandlerFor(tok *token.Ledger) engine.GraduateFunc {
	return func(ctx context.Context, snap engine.GraduationSnapshot) error {
		liquidityAmt, creatorAmt, platformAmt := c.split.Split(snap.Reserve)

		c.logger.Info("Executing graduation split",
			zap.String("token", snap.TokenMint.String()),
			zap.Uint64("reserve_snapshot", snap.Reserve),
			zap.Uint64("liquidity", liquidityAmt),
			zap.Uint64("creator", creatorAmt),
			zap.Uint64("platform", platformAmt))

		if err := c.provisioner.Provision(ctx, tok, snap.Engine, snap.Creator, liquidityAmt, snap.TokenBalance); err != nil {
			return fmt.Errorf("provision liquidity: %w", err)
		}

		// Creator share goes to the pull ledger, never push-transferred:
		// an uncooperative creator address must not block graduation.
		if err := c.bank.Transfer(snap.Engine, c.pull.Escrow(), creatorAmt); err != nil {
			return fmt.Errorf("fund escrow: %w", err)
		}
		c.pull.Credit(snap.Creator, creatorAmt)

		// Platform address is trusted, push the share directly.
		if err := c.bank.Transfer(snap.Engine, c.platform, platformAmt); err != nil {
			return fmt.Errorf("pay platform: %w", err)
		}

		c.mu.Lock()
		c.records[snap.TokenMint] = Record{
			TokenMint:       snap.TokenMint,
			FinalSupply:     snap.FinalSupply,
			SnapshotBalance: snap.Reserve,
			CreatorShare:    creatorAmt,
			PlatformShare:   platformAmt,
			LiquidityAmount: liquidityAmt,
		}
		c.mu.Unlock()

		if c.bus != nil {
			_ = c.bus.Publish(events.GraduatedEvent{
				BaseEvent:       events.NewBase(events.TypeGraduated, snap.Timestamp),
				TokenAddress:    snap.TokenMint,
				FinalSupply:     snap.FinalSupply,
				SnapshotBalance: snap.Reserve,
			})
			_ = c.bus.Publish(events.FundsSplitEvent{
				BaseEvent:       events.NewBase(events.TypeFundsSplit, snap.Timestamp),
				TokenAddress:    snap.TokenMint,
				CreatorShare:    creatorAmt,
				PlatformShare:   platformAmt,
				CreatorAddress:  snap.Creator,
				PlatformAddress: c.platform,
			})
		}
		return nil
	}
}

// RecordFor returns the graduation record for a token, if it graduated.
func (c *Controller) RecordFor(mint solana.PublicKey) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[mint]
	return rec, ok
}

// Pull exposes the pull-payment ledger for creator withdrawals.
func (c *Controller) Pull() *PullLedger { return c.pull }
