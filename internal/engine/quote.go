// internal/engine/quote.go
package engine

import "fmt"

// QuoteBuy returns the token amount a buy of nativeIn would produce right
// now, without mutating state. Callers use it to pre-compute the
// minTokensOut bound; given identical state it returns exactly what Buy
// would compute.
func (e *Engine) QuoteBuy(nativeIn uint64) (uint64, error) {
	if nativeIn == 0 {
		return 0, ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Graduated {
		return 0, ErrAlreadyGraduated
	}
	if e.state.CurrentSupply >= e.totalSupply {
		return 0, ErrCurveExhausted
	}

	toCurve := nativeIn - e.fee(nativeIn)
	return e.tokensForNative(toCurve), nil
}

// QuoteSell returns the net native proceeds a sell of tokenIn would produce
// right now, without mutating state. Identical math to Sell.
func (e *Engine) QuoteSell(tokenIn uint64) (uint64, error) {
	if tokenIn == 0 {
		return 0, ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Graduated {
		return 0, ErrAlreadyGraduated
	}
	if tokenIn > e.state.CurrentSupply {
		return 0, fmt.Errorf("sell of %d exceeds curve supply %d", tokenIn, e.state.CurrentSupply)
	}

	gross := e.curve.Cost(e.state.CurrentSupply-tokenIn, e.state.CurrentSupply)
	if gross > e.state.NativeReserve {
		gross = e.state.NativeReserve
	}
	return gross - e.fee(gross), nil
}
