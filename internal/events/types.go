// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event on the platform event surface.
// The indexer, WebSocket relay and analytics collectors consume exactly
// these types; field sets are the compatibility contract.
type EventType string

const (
	TypeTokenCreated   EventType = "token.created"
	TypeTrade          EventType = "trade.executed"
	TypeGraduated      EventType = "curve.graduated"
	TypeFundsSplit     EventType = "graduation.funds_split"
	TypeLiquidityAdded EventType = "liquidity.added"
	TypeLPWithdrawn    EventType = "liquidity.lp_withdrawn"
)

// TradeDirection is the side of a curve trade.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// Event is the base interface for all platform events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// TokenCreatedEvent is emitted when the registry provisions a new
// token/engine pair.
type TokenCreatedEvent struct {
	BaseEvent
	TokenAddress   solana.PublicKey
	CreatorAddress solana.PublicKey
	Name           string
	Symbol         string
	TotalSupply    uint64
	EngineAddress  solana.PublicKey
}

// TradeEvent is emitted for every executed curve trade.
type TradeEvent struct {
	BaseEvent
	EngineAddress solana.PublicKey
	Trader        solana.PublicKey
	Direction     TradeDirection
	NativeAmount  uint64
	TokenAmount   uint64
	Price         float64
	Fee           uint64
	Sequence      uint64
}

// GraduatedEvent is emitted exactly once per token, at the graduation
// threshold crossing.
type GraduatedEvent struct {
	BaseEvent
	TokenAddress    solana.PublicKey
	FinalSupply     uint64
	SnapshotBalance uint64
}

// FundsSplitEvent reports the three-way reserve split at graduation.
type FundsSplitEvent struct {
	BaseEvent
	TokenAddress    solana.PublicKey
	CreatorShare    uint64
	PlatformShare   uint64
	CreatorAddress  solana.PublicKey
	PlatformAddress solana.PublicKey
}

// LiquidityAddedEvent reports the liquidity deposited on the external
// exchange during graduation.
type LiquidityAddedEvent struct {
	BaseEvent
	TokenAddress            solana.PublicKey
	TokenAmount             uint64
	NativeAmount            uint64
	LiquidityReceiptQty     uint64
	LiquidityReceiptAddress solana.PublicKey
}

// LPWithdrawnEvent is emitted when the creator reclaims the locked
// liquidity receipt after the lock expires.
type LPWithdrawnEvent struct {
	BaseEvent
	TokenAddress   solana.PublicKey
	CreatorAddress solana.PublicKey
	Amount         uint64
}

// NewBase stamps a BaseEvent with the given type at the given time.
func NewBase(t EventType, at time.Time) BaseEvent {
	return BaseEvent{EventType: t, EventTime: at}
}
