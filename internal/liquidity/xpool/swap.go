// internal/liquidity/xpool/swap.go
package xpool

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// SwapNativeForToken buys tokens from the pool at the constant-product
// price. Trading on a graduated token happens here, not on the retired
// curve. Fails with ErrMinNotMet when the output undercuts minTokensOut.
func (r *Router) SwapNativeForToken(trader solana.PublicKey, mint solana.PublicKey, nativeIn, minTokensOut uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pl, ok := r.pools[mint]
	if !ok {
		return 0, ErrPoolNotFound
	}

	out := swapOutput(pl.nativeReserve, pl.tokenReserve, nativeIn, r.feeBps)
	if out < minTokensOut {
		return 0, fmt.Errorf("%w: output %d below %d", ErrMinNotMet, out, minTokensOut)
	}
	if out == 0 || out >= pl.tokenReserve {
		return 0, fmt.Errorf("swap of %d lamports not executable", nativeIn)
	}

	if err := r.bank.Transfer(trader, pl.addr, nativeIn); err != nil {
		return 0, fmt.Errorf("debit trader: %w", err)
	}
	if err := pl.tok.Transfer(pl.addr, trader, out); err != nil {
		_ = r.bank.Transfer(pl.addr, trader, nativeIn)
		return 0, fmt.Errorf("credit trader: %w", err)
	}
	pl.nativeReserve += nativeIn
	pl.tokenReserve -= out

	r.logger.Debug("Pool buy",
		zap.String("token", mint.String()),
		zap.Uint64("native_in", nativeIn),
		zap.Uint64("tokens_out", out))
	return out, nil
}

// SwapTokenForNative sells tokens into the pool. The trader must have
// approved the router beforehand.
func (r *Router) SwapTokenForNative(trader solana.PublicKey, mint solana.PublicKey, tokenIn, minNativeOut uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pl, ok := r.pools[mint]
	if !ok {
		return 0, ErrPoolNotFound
	}

	out := swapOutput(pl.tokenReserve, pl.nativeReserve, tokenIn, r.feeBps)
	if out < minNativeOut {
		return 0, fmt.Errorf("%w: output %d below %d", ErrMinNotMet, out, minNativeOut)
	}
	if out == 0 || out >= pl.nativeReserve {
		return 0, fmt.Errorf("swap of %d tokens not executable", tokenIn)
	}

	if err := pl.tok.TransferFrom(r.addr, trader, pl.addr, tokenIn); err != nil {
		return 0, fmt.Errorf("pull tokens: %w", err)
	}
	if err := r.bank.Transfer(pl.addr, trader, out); err != nil {
		_ = pl.tok.Transfer(pl.addr, trader, tokenIn)
		return 0, fmt.Errorf("credit trader: %w", err)
	}
	pl.tokenReserve += tokenIn
	pl.nativeReserve -= out

	r.logger.Debug("Pool sell",
		zap.String("token", mint.String()),
		zap.Uint64("tokens_in", tokenIn),
		zap.Uint64("native_out", out))
	return out, nil
}

// swapOutput prices a constant-product swap: out = y·a·f / (x + a·f),
// where f is the fee factor. big.Float keeps the full uint64 range exact
// enough that the fee, not rounding, dominates the result.
func swapOutput(inReserve, outReserve, amountIn, feeBps uint64) uint64 {
	x := new(big.Float).SetUint64(inReserve)
	y := new(big.Float).SetUint64(outReserve)
	a := new(big.Float).SetUint64(amountIn)

	feeFactor := big.NewFloat(float64(10_000-feeBps) / 10_000)
	a.Mul(a, feeFactor)

	numerator := new(big.Float).Mul(y, a)
	denominator := new(big.Float).Add(x, a)
	result := new(big.Float).Quo(numerator, denominator)

	out, _ := result.Uint64()
	return out
}
