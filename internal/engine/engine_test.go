// internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/bank"
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/token"
)

const (
	testTotalSupply      = uint64(1_000_000)
	testGraduationSupply = uint64(800_000)
)

type fixture struct {
	bank     *bank.Ledger
	tok      *token.Ledger
	eng      *Engine
	addr     solana.PublicKey
	owner    solana.PublicKey
	platform solana.PublicKey
	creator  solana.PublicKey
	trader   solana.PublicKey
}

// flatCurve prices every token at exactly 1 lamport, making trade math
// checkable by hand: Cost(a, b) == b - a.
func flatCurve() curve.Params {
	return curve.Params{Type: curve.TypeLinear, BasePrice: 1, Slope: 0}
}

func newFixture(t *testing.T, params curve.Params, feeBps, graduationSupply uint64, graduate GraduateFunc) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		bank:     bank.NewLedger(logger),
		addr:     solana.NewWallet().PublicKey(),
		owner:    solana.NewWallet().PublicKey(),
		platform: solana.NewWallet().PublicKey(),
		creator:  solana.NewWallet().PublicKey(),
		trader:   solana.NewWallet().PublicKey(),
	}
	mint := solana.NewWallet().PublicKey()
	f.tok = token.NewLedger("Test Token", "TEST", mint, f.addr, testTotalSupply, logger)

	f.eng = New(Config{
		Address:          f.addr,
		TokenLedger:      f.tok,
		Bank:             f.bank,
		Curve:            params,
		Owner:            f.owner,
		Platform:         f.platform,
		Creator:          f.creator,
		TotalSupply:      testTotalSupply,
		GraduationSupply: graduationSupply,
		FeeBps:           feeBps,
		Graduate:         graduate,
		Logger:           logger,
	})
	return f
}

func (f *fixture) fund(t *testing.T, lamports uint64) {
	t.Helper()
	require.NoError(t, f.bank.Credit(f.trader, lamports))
}

func TestBuySellRoundTrip(t *testing.T) {
	f := newFixture(t, flatCurve(), 100, testGraduationSupply, nil)
	f.fund(t, 10_000)

	buy, err := f.eng.Buy(context.Background(), f.trader, 10_000, 0)
	require.NoError(t, err)

	// 1% fee off the top, the rest buys tokens at 1 lamport each.
	assert.Equal(t, uint64(100), buy.Fee)
	assert.Equal(t, uint64(9_900), buy.TokenAmount)
	assert.Equal(t, uint64(1), buy.Sequence)
	assert.False(t, buy.Graduated)

	assert.Equal(t, uint64(9_900), f.tok.BalanceOf(f.trader))
	assert.Equal(t, uint64(0), f.bank.Balance(f.trader))
	assert.Equal(t, uint64(100), f.bank.Balance(f.platform))

	st := f.eng.State()
	assert.Equal(t, uint64(9_900), st.CurrentSupply)
	assert.Equal(t, uint64(9_900), st.NativeReserve)
	assert.Equal(t, uint64(10_000), st.TotalVolume)

	// Sell everything back. The engine pulls via allowance.
	require.NoError(t, f.tok.Approve(f.trader, f.addr, 9_900))
	sell, err := f.eng.Sell(context.Background(), f.trader, 9_900, 0)
	require.NoError(t, err)

	assert.Equal(t, uint64(99), sell.Fee)
	assert.Equal(t, uint64(9_801), sell.NativeAmount)
	assert.Equal(t, uint64(2), sell.Sequence)

	// Round trip never returns more than went in.
	assert.Equal(t, uint64(9_801), f.bank.Balance(f.trader))
	assert.Equal(t, uint64(0), f.tok.BalanceOf(f.trader))

	st = f.eng.State()
	assert.Equal(t, uint64(0), st.CurrentSupply)
	assert.Equal(t, uint64(0), st.NativeReserve)
	assert.Equal(t, uint64(19_900), st.TotalVolume)
}

func TestBuyRespectsSlippageBound(t *testing.T) {
	f := newFixture(t, flatCurve(), 100, testGraduationSupply, nil)
	f.fund(t, 5_000)

	quote, err := f.eng.QuoteBuy(5_000)
	require.NoError(t, err)
	require.NotZero(t, quote)

	_, err = f.eng.Buy(context.Background(), f.trader, 5_000, quote+1)
	assert.ErrorIs(t, err, ErrSlippageTooHigh)

	// Quote and execution agree exactly on unchanged state.
	buy, err := f.eng.Buy(context.Background(), f.trader, 5_000, quote)
	require.NoError(t, err)
	assert.Equal(t, quote, buy.TokenAmount)
}

func TestSellRespectsSlippageBound(t *testing.T) {
	f := newFixture(t, flatCurve(), 0, testGraduationSupply, nil)
	f.fund(t, 1_000)

	_, err := f.eng.Buy(context.Background(), f.trader, 1_000, 0)
	require.NoError(t, err)
	require.NoError(t, f.tok.Approve(f.trader, f.addr, 1_000))

	quote, err := f.eng.QuoteSell(1_000)
	require.NoError(t, err)

	_, err = f.eng.Sell(context.Background(), f.trader, 1_000, quote+1)
	assert.ErrorIs(t, err, ErrSlippageTooHigh)

	sell, err := f.eng.Sell(context.Background(), f.trader, 1_000, quote)
	require.NoError(t, err)
	assert.Equal(t, quote, sell.NativeAmount)
}

func TestSellAfterChunkedBuysNeverExceedsReserve(t *testing.T) {
	// Steep curve, zero fee. Cost floors every evaluation, so two
	// one-token buys deposit 1+2 lamports while the closed-form proceeds
	// for both tokens at once evaluate to 4. The payout must clamp to
	// the 3 lamports the curve actually holds; without the clamp the
	// reserve subtraction wraps below zero.
	params := curve.Params{Type: curve.TypeLinear, BasePrice: 1, Slope: 1}
	f := newFixture(t, params, 0, testGraduationSupply, nil)
	f.fund(t, 10)

	buy1, err := f.eng.Buy(context.Background(), f.trader, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), buy1.TokenAmount)

	buy2, err := f.eng.Buy(context.Background(), f.trader, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), buy2.TokenAmount)

	st := f.eng.State()
	require.Equal(t, uint64(2), st.CurrentSupply)
	require.Equal(t, uint64(3), st.NativeReserve)
	require.Equal(t, uint64(4), params.Cost(0, 2), "closed form must overshoot for this scenario to bite")

	quote, err := f.eng.QuoteSell(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), quote)

	require.NoError(t, f.tok.Approve(f.trader, f.addr, 2))
	sell, err := f.eng.Sell(context.Background(), f.trader, 2, quote)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sell.NativeAmount)

	// The trader got back exactly what went in, and the reserve closed
	// at zero without wrapping.
	st = f.eng.State()
	assert.Equal(t, uint64(0), st.CurrentSupply)
	assert.Equal(t, uint64(0), st.NativeReserve)
	assert.Equal(t, uint64(10), f.bank.Balance(f.trader))
	assert.Equal(t, uint64(0), f.bank.Balance(f.addr))

	// The curve stays tradable afterwards.
	_, err = f.eng.Buy(context.Background(), f.trader, 1, 0)
	assert.NoError(t, err)
}

func TestSellPaysOutFullReserveWithFee(t *testing.T) {
	params := curve.Params{Type: curve.TypeLinear, BasePrice: 25, Slope: 0.003}
	f := newFixture(t, params, 100, testGraduationSupply, nil)
	f.fund(t, 10_000_000)

	// Many small buys accumulate per-trade floor dust against the
	// closed-form cost of the whole range.
	var bought uint64
	for i := 0; i < 24; i++ {
		buy, err := f.eng.Buy(context.Background(), f.trader, 10_000, 0)
		require.NoError(t, err)
		bought += buy.TokenAmount
	}

	reserve := f.eng.State().NativeReserve
	require.NoError(t, f.tok.Approve(f.trader, f.addr, bought))
	sell, err := f.eng.Sell(context.Background(), f.trader, bought, 0)
	require.NoError(t, err)

	// Payout plus fee never exceed what the curve collected.
	assert.LessOrEqual(t, sell.NativeAmount+sell.Fee, reserve)
	st := f.eng.State()
	assert.Equal(t, uint64(0), st.CurrentSupply)
	assert.Equal(t, uint64(0), st.NativeReserve)
}

func TestTradeInputGuards(t *testing.T) {
	f := newFixture(t, flatCurve(), 100, testGraduationSupply, nil)
	f.fund(t, 1_000)

	_, err := f.eng.Buy(context.Background(), f.trader, 0, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = f.eng.Buy(context.Background(), solana.PublicKey{}, 100, 0)
	assert.ErrorIs(t, err, ErrZeroAddress)

	_, err = f.eng.Sell(context.Background(), f.trader, 0, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)

	// Selling more than the curve ever sold.
	_, err = f.eng.Sell(context.Background(), f.trader, 10, 0)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
}

func TestSellWithoutAllowance(t *testing.T) {
	f := newFixture(t, flatCurve(), 0, testGraduationSupply, nil)
	f.fund(t, 1_000)

	_, err := f.eng.Buy(context.Background(), f.trader, 1_000, 0)
	require.NoError(t, err)

	_, err = f.eng.Sell(context.Background(), f.trader, 500, 0)
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)
}

func TestPauseBlocksTradingAndLeavesStateIntact(t *testing.T) {
	f := newFixture(t, flatCurve(), 100, testGraduationSupply, nil)
	f.fund(t, 10_000)

	_, err := f.eng.Buy(context.Background(), f.trader, 4_000, 0)
	require.NoError(t, err)
	before := f.eng.State()

	assert.ErrorIs(t, f.eng.Pause(f.trader), ErrUnauthorized)
	require.NoError(t, f.eng.Pause(f.owner))

	_, err = f.eng.Buy(context.Background(), f.trader, 1_000, 0)
	assert.ErrorIs(t, err, ErrPaused)
	_, err = f.eng.Sell(context.Background(), f.trader, 1, 0)
	assert.ErrorIs(t, err, ErrPaused)

	assert.ErrorIs(t, f.eng.Unpause(f.trader), ErrUnauthorized)
	require.NoError(t, f.eng.Unpause(f.owner))

	// A pause/unpause cycle is invisible in the trading state.
	assert.Equal(t, before, f.eng.State())

	_, err = f.eng.Buy(context.Background(), f.trader, 1_000, 0)
	assert.NoError(t, err)
}

func TestGraduationFiresExactlyOnce(t *testing.T) {
	var calls int
	var snap GraduationSnapshot
	graduate := func(ctx context.Context, s GraduationSnapshot) error {
		calls++
		snap = s
		return nil
	}

	// Graduation at 1000 tokens sold, no fee so lamports in == supply out.
	f := newFixture(t, flatCurve(), 0, 1_000, graduate)
	f.fund(t, 10_000)

	buy, err := f.eng.Buy(context.Background(), f.trader, 999, 0)
	require.NoError(t, err)
	assert.False(t, buy.Graduated)
	assert.Equal(t, 0, calls)

	buy, err = f.eng.Buy(context.Background(), f.trader, 5, 0)
	require.NoError(t, err)
	assert.True(t, buy.Graduated)
	assert.Equal(t, 1, calls)

	assert.Equal(t, uint64(1_004), snap.FinalSupply)
	assert.Equal(t, uint64(1_004), snap.Reserve)
	assert.Equal(t, testTotalSupply-1_004, snap.TokenBalance)
	assert.Equal(t, f.creator, snap.Creator)

	st := f.eng.State()
	assert.True(t, st.Graduated)
	assert.Equal(t, uint64(0), st.NativeReserve)

	// The curve is closed permanently after graduation.
	_, err = f.eng.Buy(context.Background(), f.trader, 100, 0)
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
	_, err = f.eng.Sell(context.Background(), f.trader, 100, 0)
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
	_, err = f.eng.QuoteBuy(100)
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
	assert.Equal(t, 1, calls)
}

func TestGraduationSnapshotAtThresholdCrossing(t *testing.T) {
	var snap GraduationSnapshot
	graduate := func(ctx context.Context, s GraduationSnapshot) error {
		snap = s
		return nil
	}

	f := newFixture(t, flatCurve(), 0, testGraduationSupply, graduate)
	f.fund(t, 1_000_000)

	// Sit just below the 800k threshold, then cross it in one buy. The
	// snapshot captures the post-trade level, not the threshold.
	_, err := f.eng.Buy(context.Background(), f.trader, 799_000, 0)
	require.NoError(t, err)
	require.False(t, f.eng.State().Graduated)

	buy, err := f.eng.Buy(context.Background(), f.trader, 2_000, 0)
	require.NoError(t, err)
	assert.True(t, buy.Graduated)
	assert.Equal(t, uint64(801_000), snap.FinalSupply)
	assert.Equal(t, uint64(801_000), snap.Reserve)
}

func TestGraduationFailureRollsBackTriggeringBuy(t *testing.T) {
	handlerErr := errors.New("router unavailable")
	fail := true
	graduate := func(ctx context.Context, s GraduationSnapshot) error {
		if fail {
			return handlerErr
		}
		return nil
	}

	f := newFixture(t, flatCurve(), 100, 1_000, graduate)
	f.fund(t, 10_000)

	_, err := f.eng.Buy(context.Background(), f.trader, 500, 0)
	require.NoError(t, err)

	stateBefore := f.eng.State()
	traderNative := f.bank.Balance(f.trader)
	traderTokens := f.tok.BalanceOf(f.trader)
	platformNative := f.bank.Balance(f.platform)
	engineTokens := f.tok.BalanceOf(f.addr)

	_, err = f.eng.Buy(context.Background(), f.trader, 2_000, 0)
	require.ErrorIs(t, err, handlerErr)

	// Nothing moved: state and all four balances are back to the snapshot.
	assert.Equal(t, stateBefore, f.eng.State())
	assert.Equal(t, traderNative, f.bank.Balance(f.trader))
	assert.Equal(t, traderTokens, f.tok.BalanceOf(f.trader))
	assert.Equal(t, platformNative, f.bank.Balance(f.platform))
	assert.Equal(t, engineTokens, f.tok.BalanceOf(f.addr))

	// Same buy succeeds once the handler recovers, and graduates.
	fail = false
	buy, err := f.eng.Buy(context.Background(), f.trader, 2_000, 0)
	require.NoError(t, err)
	assert.True(t, buy.Graduated)
	assert.Equal(t, stateBefore.TotalVolume+2_000, f.eng.State().TotalVolume)
}

func TestReentrantCallFromGraduationHandlerRejected(t *testing.T) {
	var nestedErr error
	var f *fixture
	graduate := func(ctx context.Context, s GraduationSnapshot) error {
		_, nestedErr = f.eng.Buy(ctx, f.trader, 100, 0)
		return nestedErr
	}

	f = newFixture(t, flatCurve(), 0, 1_000, graduate)
	f.fund(t, 10_000)

	_, err := f.eng.Buy(context.Background(), f.trader, 2_000, 0)
	require.Error(t, err)
	assert.ErrorIs(t, nestedErr, ErrReentrancy)
	assert.ErrorIs(t, err, ErrReentrancy)

	// The rejected graduation rolled the buy back, nothing is stuck.
	st := f.eng.State()
	assert.False(t, st.Graduated)
	assert.Equal(t, uint64(0), st.CurrentSupply)
	assert.Equal(t, uint64(10_000), f.bank.Balance(f.trader))
}

func TestBuyBisectionMaximalOnSlopedCurve(t *testing.T) {
	params := curve.Params{Type: curve.TypeLinear, BasePrice: 10, Slope: 2}
	f := newFixture(t, params, 0, testGraduationSupply, nil)
	f.fund(t, 1_000_000)

	budget := uint64(123_457)
	quote, err := f.eng.QuoteBuy(budget)
	require.NoError(t, err)
	require.NotZero(t, quote)

	// The quoted amount fits the budget and one more token does not.
	assert.LessOrEqual(t, params.Cost(0, quote), budget)
	assert.Greater(t, params.Cost(0, quote+1), budget)

	buy, err := f.eng.Buy(context.Background(), f.trader, budget, quote)
	require.NoError(t, err)
	assert.Equal(t, quote, buy.TokenAmount)
}

func TestCurveExhaustion(t *testing.T) {
	// Tiny total supply, graduation threshold above it so only exhaustion
	// can stop buying.
	logger := zap.NewNop()
	b := bank.NewLedger(logger)
	addr := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	tok := token.NewLedger("Tiny", "TINY", solana.NewWallet().PublicKey(), addr, 100, logger)

	eng := New(Config{
		Address:          addr,
		TokenLedger:      tok,
		Bank:             b,
		Curve:            flatCurve(),
		Owner:            solana.NewWallet().PublicKey(),
		Platform:         solana.NewWallet().PublicKey(),
		Creator:          solana.NewWallet().PublicKey(),
		TotalSupply:      100,
		GraduationSupply: 200,
		FeeBps:           0,
		Logger:           logger,
	})
	require.NoError(t, b.Credit(trader, 1_000))

	buy, err := eng.Buy(context.Background(), trader, 500, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), buy.TokenAmount)
	assert.Equal(t, uint64(100), buy.NativeAmount)

	_, err = eng.Buy(context.Background(), trader, 100, 0)
	assert.ErrorIs(t, err, ErrCurveExhausted)
}

func TestEmergencyWithdraw(t *testing.T) {
	f := newFixture(t, flatCurve(), 0, testGraduationSupply, nil)
	f.fund(t, 5_000)

	_, err := f.eng.Buy(context.Background(), f.trader, 5_000, 0)
	require.NoError(t, err)

	recovery := solana.NewWallet().PublicKey()

	_, err = f.eng.EmergencyWithdraw(f.trader, recovery)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.eng.EmergencyWithdraw(f.owner, solana.PublicKey{})
	assert.ErrorIs(t, err, ErrZeroAddress)

	amount, err := f.eng.EmergencyWithdraw(f.owner, recovery)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000), amount)
	assert.Equal(t, uint64(5_000), f.bank.Balance(recovery))
	assert.Equal(t, uint64(0), f.eng.State().NativeReserve)
}

func TestGraduationFraction(t *testing.T) {
	f := newFixture(t, flatCurve(), 0, 1_000, func(ctx context.Context, s GraduationSnapshot) error {
		return nil
	})
	f.fund(t, 10_000)

	assert.Zero(t, f.eng.GraduationFraction())

	_, err := f.eng.Buy(context.Background(), f.trader, 500, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f.eng.GraduationFraction(), 1e-9)

	_, err = f.eng.Buy(context.Background(), f.trader, 600, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.eng.GraduationFraction())
}
