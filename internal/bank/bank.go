// internal/bank/bank.go
package bank

import (
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

var (
	ErrZeroAddress         = errors.New("zero address")
	ErrInsufficientBalance = errors.New("insufficient native balance")
)

// Ledger tracks native-currency (lamport) balances per address. It stands in
// for the chain's native account model when the core runs as a service.
type Ledger struct {
	mu       sync.RWMutex
	balances map[solana.PublicKey]uint64
	logger   *zap.Logger
}

func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{
		balances: make(map[solana.PublicKey]uint64),
		logger:   logger.Named("bank"),
	}
}

// Credit deposits lamports into an account. This is the host application's
// on-ramp; the trading core itself only ever moves existing balances.
func (l *Ledger) Credit(addr solana.PublicKey, amount uint64) error {
	if addr.IsZero() {
		return ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount

	l.logger.Debug("Credited native balance",
		zap.String("address", addr.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("balance", l.balances[addr]))
	return nil
}

// Transfer moves lamports between accounts. It either completes fully or
// leaves both balances untouched.
func (l *Ledger) Transfer(from, to solana.PublicKey, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Balance returns the lamport balance of an account.
func (l *Ledger) Balance(addr solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}
