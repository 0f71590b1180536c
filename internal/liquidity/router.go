// internal/liquidity/router.go
package liquidity

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/token"
)

// AddLiquidityParams is the liquidity-add request handed to the external
// exchange router. The router pulls the token side through the allowance the
// payer granted it and the native side from the payer's balance.
type AddLiquidityParams struct {
	Token               *token.Ledger
	Payer               solana.PublicKey
	TokenAmountDesired  uint64
	TokenAmountMin      uint64
	NativeAmountDesired uint64
	NativeAmountMin     uint64
	Recipient           solana.PublicKey
	Deadline            time.Time
}

// AddLiquidityResult reports what the router actually used and minted.
type AddLiquidityResult struct {
	TokenUsed  uint64
	NativeUsed uint64
	Liquidity  uint64
}

// Router is the consumed interface of the external exchange. Implementations
// must be all-or-nothing: an error leaves no funds moved.
type Router interface {
	// Address is the identity the payer approves as token spender.
	Address() solana.PublicKey
	AddLiquidity(ctx context.Context, p AddLiquidityParams) (AddLiquidityResult, error)
	// Pair resolves the liquidity-receipt (LP token) address for a token.
	Pair(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
	// TransferLiquidity moves LP tokens between holders.
	TransferLiquidity(pair, from, to solana.PublicKey, qty uint64) error
}
