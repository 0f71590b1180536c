// internal/storage/models/graduation.go
package models

import "time"

// GraduationRecord mirrors the Graduated/GraduationFundsSplit/LiquidityAdded
// event triple: one row per token, written once at the crossing.
type GraduationRecord struct {
	BaseModel
	Mint            string `gorm:"uniqueIndex;size:64"`
	FinalSupply     uint64
	SnapshotBalance uint64
	CreatorShare    uint64
	PlatformShare   uint64
	LiquidityAmount uint64
	LPToken         string `gorm:"size:64"`
	LPLocked        uint64
	LPWithdrawn     bool
	GraduatedAt     time.Time
}

func (GraduationRecord) TableName() string { return "graduations" }
