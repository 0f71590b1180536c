// internal/engine/trade.go
package engine

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

// TradeResult reports an executed curve trade.
type TradeResult struct {
	TokenAmount  uint64
	NativeAmount uint64
	Fee          uint64
	Price        float64 // marginal price after the trade
	Sequence     uint64
	Graduated    bool // true when this buy triggered graduation
}

// Buy spends up to nativeIn lamports on curve tokens. The token amount is found
// by bounded bisection over the supply delta, since Cost is cheap to
// evaluate forward but not closed-form invertible for every variant.
// Fails with ErrSlippageTooHigh when the result undercuts minTokensOut.
func (e *Engine) Buy(ctx context.Context, trader solana.PublicKey, nativeIn, minTokensOut uint64) (*TradeResult, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if trader.IsZero() {
		return nil, ErrZeroAddress
	}
	if nativeIn == 0 {
		return nil, ErrZeroAmount
	}
	if e.state.Paused {
		return nil, ErrPaused
	}
	if e.state.Graduated {
		return nil, ErrAlreadyGraduated
	}
	if e.state.CurrentSupply >= e.totalSupply {
		return nil, ErrCurveExhausted
	}

	fee := e.fee(nativeIn)
	toCurve := nativeIn - fee

	tokensOut := e.tokensForNative(toCurve)
	if tokensOut == 0 {
		return nil, ErrZeroAmount
	}
	if tokensOut < minTokensOut {
		return nil, fmt.Errorf("%w: computed %d tokens, caller requires at least %d",
			ErrSlippageTooHigh, tokensOut, minTokensOut)
	}

	// Charge the exact cost of the tokens received, not the full budget.
	// The difference matters near the supply cap, where the budget can
	// exceed what the remaining tokens cost.
	actualCost := e.curve.Cost(e.state.CurrentSupply, e.state.CurrentSupply+tokensOut)
	charge := actualCost + fee

	// Transfer and mutation phase. The busy flag stays up through the
	// graduation handler's external liquidity call.
	e.busy.Store(true)
	defer e.busy.Store(false)

	if err := e.bank.Transfer(trader, e.addr, charge); err != nil {
		return nil, fmt.Errorf("debit trader: %w", err)
	}
	if err := e.bank.Transfer(e.addr, e.platform, fee); err != nil {
		e.unwind(e.bank.Transfer(e.addr, trader, charge))
		return nil, fmt.Errorf("pay fee: %w", err)
	}
	if err := e.tok.Transfer(e.addr, trader, tokensOut); err != nil {
		e.unwind(e.bank.Transfer(e.platform, e.addr, fee))
		e.unwind(e.bank.Transfer(e.addr, trader, charge))
		return nil, fmt.Errorf("deliver tokens: %w", err)
	}

	prev := e.state
	e.state.CurrentSupply += tokensOut
	e.state.NativeReserve += actualCost
	e.state.TotalVolume += charge
	e.seq++

	result := &TradeResult{
		TokenAmount:  tokensOut,
		NativeAmount: charge,
		Fee:          fee,
		Price:        e.curve.Price(e.state.CurrentSupply),
		Sequence:     e.seq,
	}

	// Graduation check at the end of every successful buy, checked-and-set
	// so it fires exactly once.
	if e.state.CurrentSupply >= e.graduationSupply && !e.state.Graduated {
		e.state.Graduated = true
		snap := GraduationSnapshot{
			Engine:       e.addr,
			TokenMint:    e.tok.Mint(),
			Creator:      e.creator,
			FinalSupply:  e.state.CurrentSupply,
			Reserve:      e.state.NativeReserve,
			TokenBalance: e.tok.BalanceOf(e.addr),
			Timestamp:    e.clock(),
		}
		if err := e.graduate(ctx, snap); err != nil {
			// All-or-nothing: unwind the triggering buy completely.
			e.state = prev
			e.seq--
			e.unwind(e.tok.Transfer(trader, e.addr, tokensOut))
			e.unwind(e.bank.Transfer(e.platform, e.addr, fee))
			e.unwind(e.bank.Transfer(e.addr, trader, charge))
			return nil, fmt.Errorf("graduation failed, buy rolled back: %w", err)
		}
		// Reserve was distributed by the graduation handler.
		e.state.NativeReserve = 0
		result.Graduated = true
		e.logger.Info("Curve graduated",
			zap.Uint64("final_supply", snap.FinalSupply),
			zap.Uint64("reserve_snapshot", snap.Reserve))
	}

	e.publishTrade(trader, events.DirectionBuy, result)
	return result, nil
}

// Sell returns tokenIn tokens to the curve for native proceeds. Proceeds are
// forward-evaluable, no search needed. The trader must have approved the
// engine beforehand; a missing allowance surfaces as the ledger's allowance
// error, not a slippage error.
func (e *Engine) Sell(ctx context.Context, trader solana.PublicKey, tokenIn, minNativeOut uint64) (*TradeResult, error) {
	_ = ctx

	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if trader.IsZero() {
		return nil, ErrZeroAddress
	}
	if tokenIn == 0 {
		return nil, ErrZeroAmount
	}
	if e.state.Paused {
		return nil, ErrPaused
	}
	if e.state.Graduated {
		return nil, ErrAlreadyGraduated
	}
	if tokenIn > e.state.CurrentSupply {
		return nil, fmt.Errorf("%w: sell of %d exceeds curve supply %d",
			token.ErrInsufficientBalance, tokenIn, e.state.CurrentSupply)
	}

	gross := e.curve.Cost(e.state.CurrentSupply-tokenIn, e.state.CurrentSupply)
	// Cost floors every evaluation, so proceeds over a range bought in
	// several smaller trades can exceed what those trades deposited by a
	// lamport each. The curve never pays out more than it collected.
	if gross > e.state.NativeReserve {
		gross = e.state.NativeReserve
	}
	fee := e.fee(gross)
	net := gross - fee
	if net < minNativeOut {
		return nil, fmt.Errorf("%w: computed %d lamports, caller requires at least %d",
			ErrSlippageTooHigh, net, minNativeOut)
	}

	e.busy.Store(true)
	defer e.busy.Store(false)

	if err := e.tok.TransferFrom(e.addr, trader, e.addr, tokenIn); err != nil {
		return nil, fmt.Errorf("pull tokens: %w", err)
	}
	if err := e.bank.Transfer(e.addr, trader, net); err != nil {
		e.unwind(e.tok.Transfer(e.addr, trader, tokenIn))
		return nil, fmt.Errorf("pay trader: %w", err)
	}
	if err := e.bank.Transfer(e.addr, e.platform, fee); err != nil {
		e.unwind(e.bank.Transfer(trader, e.addr, net))
		e.unwind(e.tok.Transfer(e.addr, trader, tokenIn))
		return nil, fmt.Errorf("pay fee: %w", err)
	}

	e.state.CurrentSupply -= tokenIn
	e.state.NativeReserve -= gross
	e.state.TotalVolume += gross
	e.seq++

	result := &TradeResult{
		TokenAmount:  tokenIn,
		NativeAmount: net,
		Fee:          fee,
		Price:        e.curve.Price(e.state.CurrentSupply),
		Sequence:     e.seq,
	}
	e.publishTrade(trader, events.DirectionSell, result)
	return result, nil
}

// tokensForNative finds the largest supply delta whose cost fits the budget.
// Integer bisection over [0, totalSupply−currentSupply]; the iteration count
// is capped by log2(totalSupply) regardless of input magnitude, so a
// pathologically large deposit cannot inflate the caller's cost.
func (e *Engine) tokensForNative(budget uint64) uint64 {
	cur := e.state.CurrentSupply
	lo, hi := uint64(0), e.totalSupply-cur

	maxRounds := bits.Len64(e.totalSupply)
	for i := 0; i < maxRounds && lo < hi; i++ {
		mid := lo + (hi-lo+1)/2
		if e.curve.Cost(cur, cur+mid) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (e *Engine) publishTrade(trader solana.PublicKey, dir events.TradeDirection, r *TradeResult) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(events.TradeEvent{
		BaseEvent:     events.NewBase(events.TypeTrade, e.clock()),
		EngineAddress: e.addr,
		Trader:        trader,
		Direction:     dir,
		NativeAmount:  r.NativeAmount,
		TokenAmount:   r.TokenAmount,
		Price:         r.Price,
		Fee:           r.Fee,
		Sequence:      r.Sequence,
	})
}
