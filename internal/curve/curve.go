// internal/curve/curve.go
package curve

import (
	"fmt"
	"math"
	"math/big"
)

// Type identifies a supported bonding curve variant. The set is closed and
// security-reviewed; adding a variant means supplying Price and Cost below.
type Type string

const (
	TypeLinear      Type = "linear"
	TypeExponential Type = "exponential"
)

// Params describes one bonding curve instance. Supply is measured in token
// base units, prices in lamports per whole token base unit.
type Params struct {
	Type      Type    `json:"type"`
	BasePrice float64 `json:"base_price"` // marginal price at zero supply, lamports per base unit
	Slope     float64 `json:"slope"`      // linear: lamports per base unit²; exponential: growth rate per base unit
}

// Validate checks that the parameters describe a usable, non-decreasing curve.
func (p Params) Validate() error {
	switch p.Type {
	case TypeLinear, TypeExponential:
	default:
		return fmt.Errorf("unsupported curve type %q", p.Type)
	}
	if p.BasePrice <= 0 || math.IsNaN(p.BasePrice) || math.IsInf(p.BasePrice, 0) {
		return fmt.Errorf("base price must be positive, got %g", p.BasePrice)
	}
	if p.Slope < 0 || math.IsNaN(p.Slope) || math.IsInf(p.Slope, 0) {
		return fmt.Errorf("slope must be non-negative, got %g", p.Slope)
	}
	if p.Type == TypeExponential && p.Slope == 0 {
		return fmt.Errorf("exponential curve requires a positive slope")
	}
	return nil
}

// Price returns the instantaneous marginal price at the given supply,
// in lamports per base unit. Non-decreasing in supply for every variant.
func (p Params) Price(supply uint64) float64 {
	switch p.Type {
	case TypeLinear:
		return p.BasePrice + p.Slope*float64(supply)
	case TypeExponential:
		return p.BasePrice * math.Exp(p.Slope*float64(supply))
	default:
		panic(fmt.Sprintf("curve: unknown type %q", p.Type))
	}
}

// Cost returns the exact native cost of moving supply from one level to
// another: the closed-form integral of Price over [from, to), floored to
// whole lamports. from must not exceed to.
func (p Params) Cost(from, to uint64) uint64 {
	if from > to {
		panic(fmt.Sprintf("curve: inverted cost range [%d, %d]", from, to))
	}
	if from == to {
		return 0
	}

	switch p.Type {
	case TypeLinear:
		return p.linearCost(from, to)
	case TypeExponential:
		return p.exponentialCost(from, to)
	default:
		panic(fmt.Sprintf("curve: unknown type %q", p.Type))
	}
}

// linearCost evaluates basePrice·(b−a) + slope·(b²−a²)/2 with big.Float so
// that supplies near the uint64 range do not lose the low lamports.
func (p Params) linearCost(from, to uint64) uint64 {
	a := new(big.Float).SetUint64(from)
	b := new(big.Float).SetUint64(to)

	// basePrice * (b - a)
	span := new(big.Float).Sub(b, a)
	linear := new(big.Float).Mul(big.NewFloat(p.BasePrice), span)

	// slope * (b² - a²) / 2 == slope * (b - a) * (b + a) / 2
	sum := new(big.Float).Add(b, a)
	quad := new(big.Float).Mul(span, sum)
	quad.Mul(quad, big.NewFloat(p.Slope))
	quad.Quo(quad, big.NewFloat(2))

	total := new(big.Float).Add(linear, quad)
	out, _ := total.Uint64()
	return out
}

// exponentialCost evaluates basePrice/slope · (e^(slope·b) − e^(slope·a)).
func (p Params) exponentialCost(from, to uint64) uint64 {
	scale := p.BasePrice / p.Slope
	cost := scale * (math.Exp(p.Slope*float64(to)) - math.Exp(p.Slope*float64(from)))
	if cost < 0 {
		return 0
	}
	if cost >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(cost)
}
