// internal/registry/registry.go
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/bank"
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/engine"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/graduation"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

var (
	// ErrPaused means creation was attempted while the registry is paused.
	ErrPaused = errors.New("registry is paused")
	// ErrUnauthorized means a non-owner called a privileged entry point.
	ErrUnauthorized = errors.New("unauthorized")
)

// TokenConfig is the immutable launch configuration, fixed at creation.
type TokenConfig struct {
	Name                   string
	Symbol                 string
	Description            string
	MediaURI               string
	TotalSupply            uint64 // base units
	Curve                  curve.Params
	GraduationThresholdBps uint64 // fraction of TotalSupply, e.g. 8000 = 80%
}

// Validate rejects configurations the factory must not deploy.
func (c TokenConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("token name and symbol are required")
	}
	if c.TotalSupply == 0 {
		return fmt.Errorf("total supply must be positive")
	}
	if c.GraduationThresholdBps == 0 || c.GraduationThresholdBps > 10_000 {
		return fmt.Errorf("graduation threshold %d bps out of (0, 10000]", c.GraduationThresholdBps)
	}
	if err := c.Curve.Validate(); err != nil {
		return fmt.Errorf("curve params: %w", err)
	}
	if c.graduationSupply() == 0 {
		return fmt.Errorf("graduation supply rounds to zero for supply %d at %d bps", c.TotalSupply, c.GraduationThresholdBps)
	}
	return nil
}

// graduationSupply derives the supply level at which the token graduates.
// The multiply is split to stay overflow-safe near the uint64 range.
func (c TokenConfig) graduationSupply() uint64 {
	bps := c.GraduationThresholdBps
	return c.TotalSupply/10_000*bps + c.TotalSupply%10_000*bps/10_000
}

// Entry is one launched token: its configuration, addresses and live parts.
type Entry struct {
	Config    TokenConfig
	Mint      solana.PublicKey
	Engine    solana.PublicKey
	Creator   solana.PublicKey
	CreatedAt time.Time

	Token  *token.Ledger
	Trader *engine.Engine
}

// Config wires a Registry.
type Config struct {
	Owner      solana.PublicKey
	Platform   solana.PublicKey
	FeeBps     uint64
	Bank       *bank.Ledger
	Controller *graduation.Controller
	Bus        *events.Bus
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Registry is the token factory and directory. It provisions token ledger
// plus trading engine as an atomic unit and keeps the append-only creation
// sequence external services page through.
type Registry struct {
	mu      sync.RWMutex
	entries []*Entry
	byMint  map[solana.PublicKey]*Entry
	paused  bool

	owner      solana.PublicKey
	platform   solana.PublicKey
	feeBps     uint64
	bank       *bank.Ledger
	controller *graduation.Controller
	bus        *events.Bus
	logger     *zap.Logger
	clock      func() time.Time
}

func New(cfg Config) *Registry {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		byMint:     make(map[solana.PublicKey]*Entry),
		owner:      cfg.Owner,
		platform:   cfg.Platform,
		feeBps:     cfg.FeeBps,
		bank:       cfg.Bank,
		controller: cfg.Controller,
		bus:        cfg.Bus,
		logger:     cfg.Logger.Named("registry"),
		clock:      clock,
	}
}

// Create validates the config and deploys a token ledger and trading engine
// as one unit: either both exist and are recorded, or nothing does.
func (r *Registry) Create(ctx context.Context, creator solana.PublicKey, cfg TokenConfig) (*Entry, error) {
	_ = ctx

	if creator.IsZero() {
		return nil, bank.ErrZeroAddress
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid token config: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return nil, ErrPaused
	}

	mint := solana.NewWallet().PublicKey()
	engineAddr := solana.NewWallet().PublicKey()
	now := r.clock()

	ledger := token.NewLedger(cfg.Name, cfg.Symbol, mint, engineAddr, cfg.TotalSupply, r.logger)

	trader := engine.New(engine.Config{
		Address:          engineAddr,
		TokenLedger:      ledger,
		Bank:             r.bank,
		Curve:            cfg.Curve,
		Owner:            r.owner,
		Platform:         r.platform,
		Creator:          creator,
		TotalSupply:      cfg.TotalSupply,
		GraduationSupply: cfg.graduationSupply(),
		FeeBps:           r.feeBps,
		Graduate:         r.controller.HandlerFor(ledger),
		Bus:              r.bus,
		Logger:           r.logger,
		Clock:            r.clock,
	})

	entry := &Entry{
		Config:    cfg,
		Mint:      mint,
		Engine:    engineAddr,
		Creator:   creator,
		CreatedAt: now,
		Token:     ledger,
		Trader:    trader,
	}
	r.entries = append(r.entries, entry)
	r.byMint[mint] = entry

	r.logger.Info("Token created",
		zap.String("mint", mint.String()),
		zap.String("engine", engineAddr.String()),
		zap.String("creator", creator.String()),
		zap.String("symbol", cfg.Symbol),
		zap.Uint64("total_supply", cfg.TotalSupply))

	if r.bus != nil {
		_ = r.bus.Publish(events.TokenCreatedEvent{
			BaseEvent:      events.NewBase(events.TypeTokenCreated, now),
			TokenAddress:   mint,
			CreatorAddress: creator,
			Name:           cfg.Name,
			Symbol:         cfg.Symbol,
			TotalSupply:    cfg.TotalSupply,
			EngineAddress:  engineAddr,
		})
	}
	return entry, nil
}

// ListAll returns every created token mint in creation order. The sequence
// is append-only: never reordered, never pruned.
func (r *Registry) ListAll() []solana.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mints := make([]solana.PublicKey, len(r.entries))
	for i, e := range r.entries {
		mints[i] = e.Mint
	}
	return mints
}

// Get returns the entry for a token mint.
func (r *Registry) Get(mint solana.PublicKey) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byMint[mint]
	return e, ok
}

// Len returns the number of created tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Pause stops further creation. Already-created engines are unaffected.
func (r *Registry) Pause(caller solana.PublicKey) error {
	if !caller.Equals(r.owner) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	r.logger.Warn("Registry paused", zap.String("by", caller.String()))
	return nil
}

// Unpause resumes creation.
func (r *Registry) Unpause(caller solana.PublicKey) error {
	if !caller.Equals(r.owner) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	return nil
}
