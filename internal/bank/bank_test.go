// internal/bank/bank_test.go
package bank

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreditAndTransfer(t *testing.T) {
	l := NewLedger(zap.NewNop())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	require.NoError(t, l.Credit(a, 1_000))
	require.NoError(t, l.Credit(a, 500))
	assert.Equal(t, uint64(1_500), l.Balance(a))

	require.NoError(t, l.Transfer(a, b, 600))
	assert.Equal(t, uint64(900), l.Balance(a))
	assert.Equal(t, uint64(600), l.Balance(b))
}

func TestTransferGuards(t *testing.T) {
	l := NewLedger(zap.NewNop())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	require.NoError(t, l.Credit(a, 100))

	assert.ErrorIs(t, l.Transfer(solana.PublicKey{}, b, 10), ErrZeroAddress)
	assert.ErrorIs(t, l.Transfer(a, solana.PublicKey{}, 10), ErrZeroAddress)
	assert.ErrorIs(t, l.Credit(solana.PublicKey{}, 10), ErrZeroAddress)

	err := l.Transfer(a, b, 101)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	// A failed transfer moves nothing.
	assert.Equal(t, uint64(100), l.Balance(a))
	assert.Equal(t, uint64(0), l.Balance(b))

	// Zero-amount transfer is a no-op, not an error.
	assert.NoError(t, l.Transfer(a, b, 0))
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	l := NewLedger(zap.NewNop())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	require.NoError(t, l.Credit(a, 10_000))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Transfer(a, b, 100)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(10_000), l.Balance(a)+l.Balance(b))
	assert.Equal(t, uint64(0), l.Balance(a))
}
