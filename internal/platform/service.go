// internal/platform/service.go
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/bank"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/graduation"
	"github.com/rovshanmuradov/launchpad/internal/liquidity"
	"github.com/rovshanmuradov/launchpad/internal/liquidity/xpool"
	"github.com/rovshanmuradov/launchpad/internal/metrics"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

// Accounts are the platform-controlled keys. They are generated at startup:
// the service owns the whole in-process ledger, so the keys only need to be
// distinct, not externally signable.
type Accounts struct {
	Owner    solana.PublicKey // admin authority for registry and engines
	Treasury solana.PublicKey // receives trade fees and the platform share
	Escrow   solana.PublicKey // backs the creator pull-payment ledger
	LPHolder solana.PublicKey // custodies locked LP tokens
}

// Service owns the full launchpad wiring: bank, event bus, exchange pool,
// liquidity provisioner, graduation controller, registry, metrics and the
// optional Postgres event sink.
type Service struct {
	cfg      *config.Config
	logger   *zap.Logger
	accounts Accounts

	bank        *bank.Ledger
	bus         *events.Bus
	router      *xpool.Router
	provisioner *liquidity.Provisioner
	pull        *graduation.PullLedger
	controller  *graduation.Controller
	registry    *registry.Registry
	collector   *metrics.Collector
	store       storage.Storage
}

// New builds the service graph. Nothing runs yet; call Run.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	accounts := Accounts{
		Owner:    solana.NewWallet().PublicKey(),
		Treasury: solana.NewWallet().PublicKey(),
		Escrow:   solana.NewWallet().PublicKey(),
		LPHolder: solana.NewWallet().PublicKey(),
	}

	bankLedger := bank.NewLedger(logger)
	bus := events.NewBus(logger, cfg.EventBufferSize)
	router := xpool.NewRouter(bankLedger, cfg.PoolFeeBps, logger, time.Now)

	provisioner := liquidity.NewProvisioner(liquidity.Config{
		Router:       router,
		Holder:       accounts.LPHolder,
		SlippageBps:  cfg.LiquiditySlippage,
		Deadline:     time.Duration(cfg.RouterDeadlineSecs) * time.Second,
		LockDuration: time.Duration(cfg.LPLockDays) * 24 * time.Hour,
		Bus:          bus,
		Logger:       logger,
	})

	pull := graduation.NewPullLedger(accounts.Escrow, bankLedger, logger)

	split := graduation.SplitConfig{
		LiquidityBps: cfg.LiquidityShareBps,
		CreatorBps:   cfg.CreatorShareBps,
	}
	if err := split.Validate(); err != nil {
		return nil, fmt.Errorf("graduation split: %w", err)
	}

	controller := graduation.NewController(graduation.ControllerConfig{
		Split:       split,
		Platform:    accounts.Treasury,
		Bank:        bankLedger,
		Pull:        pull,
		Provisioner: provisioner,
		Bus:         bus,
		Logger:      logger,
	})

	reg := registry.New(registry.Config{
		Owner:      accounts.Owner,
		Platform:   accounts.Treasury,
		FeeBps:     cfg.FeeBps,
		Bank:       bankLedger,
		Controller: controller,
		Bus:        bus,
		Logger:     logger,
	})

	collector := metrics.NewCollector()
	collector.Attach(bus)

	svc := &Service{
		cfg:         cfg,
		logger:      logger.Named("platform"),
		accounts:    accounts,
		bank:        bankLedger,
		bus:         bus,
		router:      router,
		provisioner: provisioner,
		pull:        pull,
		controller:  controller,
		registry:    reg,
		collector:   collector,
	}

	if cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		storage.NewRecorder(store, logger).Attach(bus)
		svc.store = store
	}

	return svc, nil
}

// Run serves until the context is cancelled, then drains the bus and
// closes the sinks.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.collector.Handler())
		srv := &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}

		g.Go(func() error {
			s.logger.Info("Metrics endpoint up", zap.String("addr", s.cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
	}

	err := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if busErr := s.bus.Shutdown(drainCtx); busErr != nil {
		s.logger.Warn("Event bus drained with error", zap.Error(busErr))
	}
	if s.store != nil {
		if closeErr := s.store.Close(); closeErr != nil {
			s.logger.Warn("Storage close failed", zap.Error(closeErr))
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Accounts returns the platform-controlled keys.
func (s *Service) Accounts() Accounts { return s.accounts }

// Registry exposes the token factory and directory.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Graduation exposes the graduation controller for record queries and
// creator share withdrawals.
func (s *Service) Graduation() *graduation.Controller { return s.controller }

// Liquidity exposes the provisioner for lock queries and LP withdrawal.
func (s *Service) Liquidity() *liquidity.Provisioner { return s.provisioner }

// Pool exposes the post-graduation trading venue.
func (s *Service) Pool() *xpool.Router { return s.router }

// Deposit credits native funds to a trader account. This is the on-ramp
// for the in-process bank ledger.
func (s *Service) Deposit(account solana.PublicKey, lamports uint64) error {
	return s.bank.Credit(account, lamports)
}

// NativeBalance reports an account's bank balance in lamports.
func (s *Service) NativeBalance(account solana.PublicKey) uint64 {
	return s.bank.Balance(account)
}

// TokenBalance reports a holder's balance on a launched token. The second
// return is false if the mint is unknown.
func (s *Service) TokenBalance(mint, holder solana.PublicKey) (uint64, bool) {
	entry, ok := s.registry.Get(mint)
	if !ok {
		return 0, false
	}
	return entry.Token.BalanceOf(holder), true
}

// TokenLedger resolves a launched token's ledger by mint.
func (s *Service) TokenLedger(mint solana.PublicKey) (*token.Ledger, bool) {
	entry, ok := s.registry.Get(mint)
	if !ok {
		return nil, false
	}
	return entry.Token, true
}
