// internal/engine/engine.go
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/bank"
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

// CurveState is the mutable trading state owned exclusively by one engine.
type CurveState struct {
	CurrentSupply uint64 // base units sold onto the curve, 0..TotalSupply
	NativeReserve uint64 // lamports backing the curve
	TotalVolume   uint64 // lamports, monotonically non-decreasing
	Graduated     bool   // write-once false→true
	Paused        bool   // owner toggle
}

// GraduationSnapshot captures the engine state at the graduation instant.
// It is handed to the graduation handler while the engine lock is held.
type GraduationSnapshot struct {
	Engine       solana.PublicKey
	TokenMint    solana.PublicKey
	Creator      solana.PublicKey
	FinalSupply  uint64
	Reserve      uint64 // distributable lamports at the crossing point
	TokenBalance uint64 // unsold tokens still held by the engine
	Timestamp    time.Time
}

// GraduateFunc executes the one-time fund split and liquidity provisioning.
// It must be all-or-nothing: on error the engine rolls the triggering buy
// back entirely.
type GraduateFunc func(ctx context.Context, snap GraduationSnapshot) error

// Config wires one engine instance.
type Config struct {
	Address          solana.PublicKey
	TokenLedger      *token.Ledger
	Bank             *bank.Ledger
	Curve            curve.Params
	Owner            solana.PublicKey
	Platform         solana.PublicKey
	Creator          solana.PublicKey
	TotalSupply      uint64
	GraduationSupply uint64 // supply level at which the curve graduates
	FeeBps           uint64
	Graduate         GraduateFunc
	Bus              *events.Bus
	Logger           *zap.Logger
	Clock            func() time.Time
}

// Engine is the per-token automated market maker. It is the sole owner and
// sole mutator of its CurveState: the mutex serializes callers for the full
// duration of a trade, external calls included, and the busy flag rejects
// nested calls arriving through an external transfer callback.
type Engine struct {
	mu   sync.Mutex
	busy atomic.Bool

	addr             solana.PublicKey
	owner            solana.PublicKey
	platform         solana.PublicKey
	creator          solana.PublicKey
	curve            curve.Params
	totalSupply      uint64
	graduationSupply uint64
	feeBps           uint64

	state CurveState
	seq   uint64

	tok      *token.Ledger
	bank     *bank.Ledger
	graduate GraduateFunc
	bus      *events.Bus
	logger   *zap.Logger
	clock    func() time.Time
}

// New creates a trading engine over an already-minted token ledger. The
// ledger's full supply must sit at cfg.Address.
func New(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		addr:             cfg.Address,
		owner:            cfg.Owner,
		platform:         cfg.Platform,
		creator:          cfg.Creator,
		curve:            cfg.Curve,
		totalSupply:      cfg.TotalSupply,
		graduationSupply: cfg.GraduationSupply,
		feeBps:           cfg.FeeBps,
		tok:              cfg.TokenLedger,
		bank:             cfg.Bank,
		graduate:         cfg.Graduate,
		bus:              cfg.Bus,
		logger:           cfg.Logger.Named("engine").With(zap.String("token", cfg.TokenLedger.Symbol())),
		clock:            clock,
	}
}

// Address returns the engine's ledger account.
func (e *Engine) Address() solana.PublicKey { return e.addr }

// Creator returns the token creator's address.
func (e *Engine) Creator() solana.PublicKey { return e.creator }

// TokenMint returns the mint address of the traded token.
func (e *Engine) TokenMint() solana.PublicKey { return e.tok.Mint() }

// State returns a copy of the current curve state.
func (e *Engine) State() CurveState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentPrice returns the instantaneous marginal price at the current supply.
func (e *Engine) CurrentPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.curve.Price(e.state.CurrentSupply)
}

// GraduationFraction reports progress toward graduation in [0, 1].
func (e *Engine) GraduationFraction() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Graduated {
		return 1
	}
	return float64(e.state.CurrentSupply) / float64(e.graduationSupply)
}

// fee returns the platform cut of a native amount, rounded down.
func (e *Engine) fee(amount uint64) uint64 {
	return amount * e.feeBps / 10_000
}

// unwind records a failed compensating transfer. Every unwind reverses a
// transfer that just succeeded in the same critical section, so a failure
// here indicates ledger corruption, not a recoverable condition.
func (e *Engine) unwind(err error) {
	if err != nil {
		e.logger.Error("Compensating transfer failed", zap.Error(err))
	}
}

// enter rejects reentrant calls, then serializes against other callers.
// The busy flag is checked before the lock: a nested call made from inside
// an external transfer runs on the caller's own stack and would otherwise
// deadlock on the mutex.
func (e *Engine) enter() error {
	if e.busy.Load() {
		return ErrReentrancy
	}
	e.mu.Lock()
	return nil
}
