// internal/liquidity/errors.go
package liquidity

import "errors"

var (
	// ErrLockNotExpired means the LP withdrawal came before the unlock time.
	ErrLockNotExpired = errors.New("lp lock not expired")
	// ErrNothingLocked means no LP tokens are locked for the token, either
	// because the curve never graduated or because they were already withdrawn.
	ErrNothingLocked = errors.New("nothing locked")
	// ErrUnauthorized means the caller is not the original creator.
	ErrUnauthorized = errors.New("unauthorized")
)
