// internal/storage/models/trade.go
package models

import "time"

// TradeRecord mirrors a Trade event. Trades are ephemeral in the core;
// this table is the durable event log analytics and charts read from.
type TradeRecord struct {
	BaseModel
	Engine       string `gorm:"index;size:64"`
	Trader       string `gorm:"index;size:64"`
	Direction    string `gorm:"size:8"`
	NativeAmount uint64
	TokenAmount  uint64
	Price        float64
	Fee          uint64
	Sequence     uint64 `gorm:"index"`
	ExecutedAt   time.Time
}

func (TradeRecord) TableName() string { return "trades" }
