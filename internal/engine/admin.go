// internal/engine/admin.go
package engine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Pause blocks buy and sell. It never blocks pull withdrawals or LP
// unlocking, which live outside the engine. Owner-only.
func (e *Engine) Pause(caller solana.PublicKey) error {
	if !caller.Equals(e.owner) {
		return ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Paused = true
	e.logger.Warn("Engine paused", zap.String("by", caller.String()))
	return nil
}

// Unpause restores trading. The pause cycle itself leaves no other trace in
// the curve state. Owner-only.
func (e *Engine) Unpause(caller solana.PublicKey) error {
	if !caller.Equals(e.owner) {
		return ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Paused = false
	e.logger.Info("Engine unpaused", zap.String("by", caller.String()))
	return nil
}

// EmergencyWithdraw drains the engine's entire native balance to the given
// recipient. Break-glass escape hatch for stuck funds: it bypasses the
// pause and graduation gates on purpose and is owner-only.
func (e *Engine) EmergencyWithdraw(caller, to solana.PublicKey) (uint64, error) {
	if !caller.Equals(e.owner) {
		return 0, ErrUnauthorized
	}
	if to.IsZero() {
		return 0, ErrZeroAddress
	}

	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	e.busy.Store(true)
	defer e.busy.Store(false)

	amount := e.bank.Balance(e.addr)
	if amount == 0 {
		return 0, nil
	}
	if err := e.bank.Transfer(e.addr, to, amount); err != nil {
		return 0, fmt.Errorf("emergency withdraw: %w", err)
	}
	e.state.NativeReserve = 0

	e.logger.Warn("Emergency withdraw executed",
		zap.String("to", to.String()),
		zap.Uint64("amount", amount))
	return amount, nil
}
