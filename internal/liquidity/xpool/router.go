// internal/liquidity/xpool/router.go
package xpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/bank"
	"github.com/rovshanmuradov/launchpad/internal/liquidity"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

var (
	ErrDeadlineExpired = errors.New("deadline expired")
	ErrPoolNotFound    = errors.New("pool not found")
	ErrMinNotMet       = errors.New("amount below minimum")
)

// pool is one token/native constant-product pair. The pool's address doubles
// as its LP token identity, the way an AMM's LP mint identifies the pair.
type pool struct {
	addr          solana.PublicKey
	tok           *token.Ledger
	tokenReserve  uint64
	nativeReserve uint64
	lpSupply      uint64
	lpBalances    map[solana.PublicKey]uint64
}

// Router is an in-process constant-product exchange implementing
// liquidity.Router. It stands in for the external venue graduated tokens
// migrate to; swap pricing follows x·y=k with a basis-point fee.
type Router struct {
	mu     sync.RWMutex
	addr   solana.PublicKey
	pools  map[solana.PublicKey]*pool // keyed by token mint
	bank   *bank.Ledger
	feeBps uint64
	logger *zap.Logger
	clock  func() time.Time
}

func NewRouter(b *bank.Ledger, feeBps uint64, logger *zap.Logger, clock func() time.Time) *Router {
	if clock == nil {
		clock = time.Now
	}
	return &Router{
		addr:   solana.NewWallet().PublicKey(),
		pools:  make(map[solana.PublicKey]*pool),
		bank:   b,
		feeBps: feeBps,
		logger: logger.Named("xpool"),
		clock:  clock,
	}
}

func (r *Router) Address() solana.PublicKey { return r.addr }

// AddLiquidity pulls both sides from the payer and mints LP tokens to the
// recipient. First deposit sets the pool price; later deposits are matched
// to the current ratio and checked against the caller's minimums. Funds are
// validated before anything moves, so an error leaves no partial deposit.
func (r *Router) AddLiquidity(ctx context.Context, p liquidity.AddLiquidityParams) (liquidity.AddLiquidityResult, error) {
	_ = ctx

	var zero liquidity.AddLiquidityResult
	if r.clock().After(p.Deadline) {
		return zero, ErrDeadlineExpired
	}
	if p.Recipient.IsZero() || p.Payer.IsZero() {
		return zero, fmt.Errorf("invalid address in add-liquidity request")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	mint := p.Token.Mint()
	pl, exists := r.pools[mint]

	tokenUsed, nativeUsed := p.TokenAmountDesired, p.NativeAmountDesired
	if exists && pl.lpSupply > 0 {
		tokenUsed, nativeUsed = matchRatio(pl, p.TokenAmountDesired, p.NativeAmountDesired)
		if tokenUsed < p.TokenAmountMin || nativeUsed < p.NativeAmountMin {
			return zero, fmt.Errorf("%w: matched %d tokens / %d lamports", ErrMinNotMet, tokenUsed, nativeUsed)
		}
	}

	if !exists {
		pl = &pool{
			addr:       solana.NewWallet().PublicKey(),
			tok:        p.Token,
			lpBalances: make(map[solana.PublicKey]uint64),
		}
	}

	// Pre-check both legs so the deposit is all-or-nothing.
	if p.Token.Allowance(p.Payer, r.addr) < tokenUsed {
		return zero, token.ErrInsufficientAllowance
	}
	if r.bank.Balance(p.Payer) < nativeUsed {
		return zero, bank.ErrInsufficientBalance
	}
	if err := p.Token.TransferFrom(r.addr, p.Payer, pl.addr, tokenUsed); err != nil {
		return zero, fmt.Errorf("pull tokens: %w", err)
	}
	if err := r.bank.Transfer(p.Payer, pl.addr, nativeUsed); err != nil {
		return zero, fmt.Errorf("pull native: %w", err)
	}

	var minted uint64
	if pl.lpSupply == 0 {
		minted = sqrtProduct(tokenUsed, nativeUsed)
	} else {
		minted = tokenUsed * pl.lpSupply / pl.tokenReserve
	}

	pl.tokenReserve += tokenUsed
	pl.nativeReserve += nativeUsed
	pl.lpSupply += minted
	pl.lpBalances[p.Recipient] += minted
	r.pools[mint] = pl

	r.logger.Info("Liquidity added",
		zap.String("token", mint.String()),
		zap.Uint64("token_used", tokenUsed),
		zap.Uint64("native_used", nativeUsed),
		zap.Uint64("lp_minted", minted))

	return liquidity.AddLiquidityResult{TokenUsed: tokenUsed, NativeUsed: nativeUsed, Liquidity: minted}, nil
}

// Pair resolves the LP token address for a listed token.
func (r *Router) Pair(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()
	pl, ok := r.pools[mint]
	if !ok {
		return solana.PublicKey{}, ErrPoolNotFound
	}
	return pl.addr, nil
}

// TransferLiquidity moves LP tokens between holders.
func (r *Router) TransferLiquidity(pair, from, to solana.PublicKey, qty uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pl := range r.pools {
		if !pl.addr.Equals(pair) {
			continue
		}
		if pl.lpBalances[from] < qty {
			return bank.ErrInsufficientBalance
		}
		pl.lpBalances[from] -= qty
		pl.lpBalances[to] += qty
		return nil
	}
	return ErrPoolNotFound
}

// LPBalance returns a holder's LP token balance for a token's pool.
func (r *Router) LPBalance(mint, holder solana.PublicKey) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pl, ok := r.pools[mint]
	if !ok {
		return 0
	}
	return pl.lpBalances[holder]
}

// Reserves reports a pool's current token and native reserves.
func (r *Router) Reserves(mint solana.PublicKey) (tokenReserve, nativeReserve uint64, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pl, ok := r.pools[mint]
	if !ok {
		return 0, 0, ErrPoolNotFound
	}
	return pl.tokenReserve, pl.nativeReserve, nil
}

// matchRatio scales a deposit to the pool's current price, keeping whichever
// side is the binding constraint at its desired amount.
func matchRatio(pl *pool, tokenDesired, nativeDesired uint64) (tokenUsed, nativeUsed uint64) {
	nativeForTokens := mulDiv(tokenDesired, pl.nativeReserve, pl.tokenReserve)
	if nativeForTokens <= nativeDesired {
		return tokenDesired, nativeForTokens
	}
	return mulDiv(nativeDesired, pl.tokenReserve, pl.nativeReserve), nativeDesired
}

// mulDiv computes a*b/c without intermediate uint64 overflow.
func mulDiv(a, b, c uint64) uint64 {
	out := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	out.Quo(out, new(big.Int).SetUint64(c))
	return out.Uint64()
}

// sqrtProduct returns floor(sqrt(a*b)), the canonical initial LP mint.
func sqrtProduct(a, b uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	return product.Sqrt(product).Uint64()
}
