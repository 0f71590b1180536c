// internal/engine/errors.go
package engine

import "errors"

var (
	// ErrSlippageTooHigh means the computed output violates the caller's
	// minimum-out bound.
	ErrSlippageTooHigh = errors.New("slippage too high")
	// ErrPaused means a mutating call was attempted while the engine is paused.
	ErrPaused = errors.New("engine is paused")
	// ErrAlreadyGraduated means curve trading was attempted after graduation.
	ErrAlreadyGraduated = errors.New("curve already graduated")
	// ErrUnauthorized means a non-owner called a privileged entry point.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrReentrancy means a nested call hit the engine while it was executing
	// a transfer or an external liquidity call.
	ErrReentrancy = errors.New("reentrant call rejected")
	// ErrZeroAmount means a trade was submitted with a zero input.
	ErrZeroAmount = errors.New("zero amount")
	// ErrZeroAddress means an invalid zero recipient or trader address.
	ErrZeroAddress = errors.New("zero address")
	// ErrCurveExhausted means a buy was attempted with no supply left on the curve.
	ErrCurveExhausted = errors.New("curve supply exhausted")
)
