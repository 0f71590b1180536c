// internal/platform/service_test.go
package platform

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/registry"
)

func testConfig() *config.Config {
	return &config.Config{
		FeeBps:             100,
		LiquidityShareBps:  7_000,
		CreatorShareBps:    2_000,
		LiquiditySlippage:  500,
		RouterDeadlineSecs: 300,
		LPLockDays:         180,
		PoolFeeBps:         25,
		EventBufferSize:    256,
	}
}

func newService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestLaunchTradeGraduateLifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	creator := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	require.NoError(t, svc.Deposit(trader, 2_000_000))

	entry, err := svc.Registry().Create(ctx, creator, registry.TokenConfig{
		Name:                   "Launch Test",
		Symbol:                 "LNCH",
		TotalSupply:            1_000_000,
		Curve:                  curve.Params{Type: curve.TypeLinear, BasePrice: 1, Slope: 0},
		GraduationThresholdBps: 8_000,
	})
	require.NoError(t, err)

	// Trade up to the threshold. Flat 1-lamport curve with a 1% fee:
	// 808_080 lamports in buys exactly 800_000 tokens.
	buy, err := entry.Trader.Buy(ctx, trader, 808_080, 0)
	require.NoError(t, err)
	require.True(t, buy.Graduated)

	// Reserve 800_000 split 70/20/10.
	rec, ok := svc.Graduation().RecordFor(entry.Mint)
	require.True(t, ok)
	assert.Equal(t, uint64(800_000), rec.SnapshotBalance)
	assert.Equal(t, uint64(560_000), rec.LiquidityAmount)
	assert.Equal(t, uint64(160_000), rec.CreatorShare)
	assert.Equal(t, uint64(80_000), rec.PlatformShare)

	// Creator share is pull-based.
	assert.Equal(t, uint64(160_000), svc.Graduation().Pull().Owed(creator))
	amount, err := svc.Graduation().Pull().Withdraw(creator)
	require.NoError(t, err)
	assert.Equal(t, uint64(160_000), amount)
	assert.Equal(t, uint64(160_000), svc.NativeBalance(creator))

	// LP tokens are locked for 180 days starting now.
	lock, ok := svc.Liquidity().LockFor(entry.Mint)
	require.True(t, ok)
	assert.Equal(t, creator, lock.Creator)
	assert.NotZero(t, lock.Locked)
	assert.True(t, lock.UnlockTime.After(time.Now().Add(179*24*time.Hour)))

	// The curve is closed; trading moved to the pool.
	_, err = entry.Trader.Buy(ctx, trader, 1_000, 0)
	require.Error(t, err)

	balance, ok := svc.TokenBalance(entry.Mint, trader)
	require.True(t, ok)
	assert.Equal(t, uint64(800_000), balance)

	out, err := svc.Pool().SwapNativeForToken(trader, entry.Mint, 10_000, 0)
	require.NoError(t, err)
	assert.NotZero(t, out)
	afterSwap, _ := svc.TokenBalance(entry.Mint, trader)
	assert.Equal(t, balance+out, afterSwap)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := newService(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTokenQueriesUnknownMint(t *testing.T) {
	svc := newService(t)

	_, ok := svc.TokenBalance(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	assert.False(t, ok)
	_, ok = svc.TokenLedger(solana.NewWallet().PublicKey())
	assert.False(t, ok)
}
