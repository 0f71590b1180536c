// internal/token/ledger.go
package token

import (
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

var (
	ErrZeroAddress           = errors.New("zero address")
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
)

// Ledger is the fungible ledger for one launched token: balances, allowances
// and the fixed total supply minted at creation. One instance per token,
// created by the registry with the full supply held by the trading engine.
type Ledger struct {
	mu          sync.RWMutex
	name        string
	symbol      string
	mint        solana.PublicKey
	totalSupply uint64
	balances    map[solana.PublicKey]uint64
	allowances  map[solana.PublicKey]map[solana.PublicKey]uint64
	logger      *zap.Logger
}

// NewLedger mints totalSupply base units to holder and returns the ledger.
func NewLedger(name, symbol string, mint, holder solana.PublicKey, totalSupply uint64, logger *zap.Logger) *Ledger {
	l := &Ledger{
		name:        name,
		symbol:      symbol,
		mint:        mint,
		totalSupply: totalSupply,
		balances:    make(map[solana.PublicKey]uint64),
		allowances:  make(map[solana.PublicKey]map[solana.PublicKey]uint64),
		logger:      logger.Named("token").With(zap.String("symbol", symbol)),
	}
	l.balances[holder] = totalSupply
	return l
}

func (l *Ledger) Name() string           { return l.name }
func (l *Ledger) Symbol() string         { return l.symbol }
func (l *Ledger) Mint() solana.PublicKey { return l.mint }
func (l *Ledger) TotalSupply() uint64    { return l.totalSupply }

// BalanceOf returns the token balance of an address.
func (l *Ledger) BalanceOf(addr solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}

// Transfer moves tokens from one holder to another, all-or-nothing.
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

// Approve authorizes spender to move up to amount tokens on owner's behalf.
// Setting a new allowance replaces the previous one.
func (l *Ledger) Approve(owner, spender solana.PublicKey, amount uint64) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[solana.PublicKey]uint64)
	}
	l.allowances[owner][spender] = amount

	l.logger.Debug("Allowance set",
		zap.String("owner", owner.String()),
		zap.String("spender", spender.String()),
		zap.Uint64("amount", amount))
	return nil
}

// Allowance returns the remaining amount spender may move from owner.
func (l *Ledger) Allowance(owner, spender solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[owner][spender]
}

// TransferFrom spends spender's allowance to move owner's tokens. Allowance
// is checked before balance so the caller can tell the two failures apart.
func (l *Ledger) TransferFrom(spender, owner, to solana.PublicKey, amount uint64) error {
	if spender.IsZero() || owner.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner][spender] < amount {
		return ErrInsufficientAllowance
	}
	if l.balances[owner] < amount {
		return ErrInsufficientBalance
	}
	l.allowances[owner][spender] -= amount
	l.balances[owner] -= amount
	l.balances[to] += amount
	return nil
}
