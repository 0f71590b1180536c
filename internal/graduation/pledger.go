// internal/graduation/pledger.go
package graduation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/bank"
)

// ErrNothingWithdrawable means the caller has no credited balance to pull.
var ErrNothingWithdrawable = errors.New("nothing withdrawable")

// PullLedger holds graduation payouts owed to creators. Value flowing to a
// non-trusted party is credited here instead of push-transferred, so a
// misbehaving or non-accepting creator cannot block graduation. Withdrawal
// is never gated by an engine pause.
type PullLedger struct {
	mu     sync.RWMutex
	escrow solana.PublicKey
	owed   map[solana.PublicKey]uint64
	bank   *bank.Ledger
	logger *zap.Logger
}

func NewPullLedger(escrow solana.PublicKey, b *bank.Ledger, logger *zap.Logger) *PullLedger {
	return &PullLedger{
		escrow: escrow,
		owed:   make(map[solana.PublicKey]uint64),
		bank:   b,
		logger: logger.Named("pull_ledger"),
	}
}

// Escrow is the account the credited lamports sit on until withdrawal.
func (p *PullLedger) Escrow() solana.PublicKey { return p.escrow }

// Credit records an amount owed. The corresponding lamports must already be
// on the escrow account; crediting itself cannot fail on the payee's side.
func (p *PullLedger) Credit(to solana.PublicKey, amount uint64) {
	if amount == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.owed[to] += amount

	p.logger.Info("Balance credited",
		zap.String("to", to.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("owed", p.owed[to]))
}

// Owed returns the claimable balance of an address.
func (p *PullLedger) Owed(addr solana.PublicKey) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owed[addr]
}

// Withdraw pays out the caller's full credited balance.
func (p *PullLedger) Withdraw(caller solana.PublicKey) (uint64, error) {
	if caller.IsZero() {
		return 0, bank.ErrZeroAddress
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	amount := p.owed[caller]
	if amount == 0 {
		return 0, ErrNothingWithdrawable
	}
	if err := p.bank.Transfer(p.escrow, caller, amount); err != nil {
		return 0, fmt.Errorf("escrow payout: %w", err)
	}
	p.owed[caller] = 0

	p.logger.Info("Balance withdrawn",
		zap.String("by", caller.String()),
		zap.Uint64("amount", amount))
	return amount, nil
}
