// internal/liquidity/provisioner.go
package liquidity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

// Lock records one token's locked liquidity position.
type Lock struct {
	TokenMint  solana.PublicKey
	Creator    solana.PublicKey
	LPToken    solana.PublicKey
	Locked     uint64
	UnlockTime time.Time
}

// Config wires a Provisioner.
type Config struct {
	Router       Router
	Holder       solana.PublicKey // account the locked LP tokens sit on
	SlippageBps  uint64           // tolerance applied to the min amounts
	Deadline     time.Duration    // router call deadline from now
	LockDuration time.Duration    // LP lock, e.g. 180 days
	Bus          *events.Bus
	Logger       *zap.Logger
	Clock        func() time.Time
}

// Provisioner converts a graduated curve's reserves into locked exchange
// liquidity and custodies the resulting LP tokens until the lock expires.
type Provisioner struct {
	mu     sync.RWMutex
	locks  map[solana.PublicKey]*Lock // keyed by token mint
	router Router
	holder solana.PublicKey

	slippageBps  uint64
	deadline     time.Duration
	lockDuration time.Duration

	bus    *events.Bus
	logger *zap.Logger
	clock  func() time.Time
}

func NewProvisioner(cfg Config) *Provisioner {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Provisioner{
		locks:        make(map[solana.PublicKey]*Lock),
		router:       cfg.Router,
		holder:       cfg.Holder,
		slippageBps:  cfg.SlippageBps,
		deadline:     cfg.Deadline,
		lockDuration: cfg.LockDuration,
		bus:          cfg.Bus,
		logger:       cfg.Logger.Named("liquidity"),
		clock:        clock,
	}
}

// Provision deposits the native amount and the engine's full remaining token
// balance on the external exchange and locks the minted LP tokens. Called
// exactly once per token, from the graduation handler, with the engine lock
// held. All-or-nothing: an error means no funds moved.
func (p *Provisioner) Provision(ctx context.Context, tok *token.Ledger, payer, creator solana.PublicKey, nativeAmount, tokenAmount uint64) error {
	if tokenAmount == 0 || nativeAmount == 0 {
		return fmt.Errorf("provision requires both sides, got %d tokens / %d lamports", tokenAmount, nativeAmount)
	}

	now := p.clock()

	// Fixed tolerance below the intended amounts; a short deadline keeps a
	// stale call from executing after conditions move.
	tokenMin := tokenAmount * (10_000 - p.slippageBps) / 10_000
	nativeMin := nativeAmount * (10_000 - p.slippageBps) / 10_000

	if err := tok.Approve(payer, p.router.Address(), tokenAmount); err != nil {
		return fmt.Errorf("approve router: %w", err)
	}

	result, err := p.router.AddLiquidity(ctx, AddLiquidityParams{
		Token:               tok,
		Payer:               payer,
		TokenAmountDesired:  tokenAmount,
		TokenAmountMin:      tokenMin,
		NativeAmountDesired: nativeAmount,
		NativeAmountMin:     nativeMin,
		Recipient:           p.holder,
		Deadline:            now.Add(p.deadline),
	})
	if err != nil {
		// Do not leave the router holding a spendable allowance it never used.
		if aerr := tok.Approve(payer, p.router.Address(), 0); aerr != nil {
			p.logger.Error("Failed to revoke router allowance", zap.Error(aerr))
		}
		return fmt.Errorf("router add liquidity: %w", err)
	}

	pair, err := p.resolvePair(ctx, tok.Mint())
	if err != nil {
		return fmt.Errorf("resolve pair: %w", err)
	}

	lock := &Lock{
		TokenMint:  tok.Mint(),
		Creator:    creator,
		LPToken:    pair,
		Locked:     result.Liquidity,
		UnlockTime: now.Add(p.lockDuration),
	}

	p.mu.Lock()
	p.locks[tok.Mint()] = lock
	p.mu.Unlock()

	p.logger.Info("Liquidity provisioned and locked",
		zap.String("token", tok.Mint().String()),
		zap.Uint64("token_used", result.TokenUsed),
		zap.Uint64("native_used", result.NativeUsed),
		zap.Uint64("lp_locked", result.Liquidity),
		zap.Time("unlock_time", lock.UnlockTime))

	if p.bus != nil {
		_ = p.bus.Publish(events.LiquidityAddedEvent{
			BaseEvent:               events.NewBase(events.TypeLiquidityAdded, now),
			TokenAddress:            tok.Mint(),
			TokenAmount:             result.TokenUsed,
			NativeAmount:            result.NativeUsed,
			LiquidityReceiptQty:     result.Liquidity,
			LiquidityReceiptAddress: pair,
		})
	}
	return nil
}

// resolvePair looks the LP token address up after the deposit. The lookup is
// a read and may race pool indexing on a real venue, so it retries briefly.
func (p *Provisioner) resolvePair(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = time.Second

	return backoff.Retry(ctx,
		func() (solana.PublicKey, error) { return p.router.Pair(ctx, mint) },
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(5),
		backoff.WithNotify(func(err error, d time.Duration) {
			p.logger.Debug("Pair lookup retry", zap.Error(err), zap.Duration("backoff", d))
		}))
}

// WithdrawLPTokens releases the locked LP tokens to the creator. One-shot:
// it fails before the unlock time, fails for anyone but the creator, and
// fails once the position was already withdrawn.
func (p *Provisioner) WithdrawLPTokens(tokenMint, caller solana.PublicKey) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[tokenMint]
	if !ok || lock.Locked == 0 {
		return 0, ErrNothingLocked
	}
	if !caller.Equals(lock.Creator) {
		return 0, ErrUnauthorized
	}

	now := p.clock()
	if now.Before(lock.UnlockTime) {
		return 0, fmt.Errorf("%w: %s until unlock", ErrLockNotExpired, lock.UnlockTime.Sub(now))
	}

	amount := lock.Locked
	if err := p.router.TransferLiquidity(lock.LPToken, p.holder, caller, amount); err != nil {
		return 0, fmt.Errorf("transfer lp tokens: %w", err)
	}
	lock.Locked = 0

	p.logger.Info("LP tokens withdrawn",
		zap.String("token", tokenMint.String()),
		zap.String("creator", caller.String()),
		zap.Uint64("amount", amount))

	if p.bus != nil {
		_ = p.bus.Publish(events.LPWithdrawnEvent{
			BaseEvent:      events.NewBase(events.TypeLPWithdrawn, now),
			TokenAddress:   tokenMint,
			CreatorAddress: caller,
			Amount:         amount,
		})
	}
	return amount, nil
}

// LockFor returns the recorded lock for a token, if any.
func (p *Provisioner) LockFor(tokenMint solana.PublicKey) (Lock, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lock, ok := p.locks[tokenMint]
	if !ok {
		return Lock{}, false
	}
	return *lock, true
}
