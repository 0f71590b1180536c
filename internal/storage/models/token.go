// internal/storage/models/token.go
package models

// TokenRecord mirrors a TokenCreated event: one row per launched token.
type TokenRecord struct {
	BaseModel
	Mint         string `gorm:"uniqueIndex;size:64"`
	Engine       string `gorm:"size:64"`
	Creator      string `gorm:"index;size:64"`
	Name         string
	Symbol       string `gorm:"index"`
	TotalSupply  uint64
	CurveType    string
	BasePrice    float64
	Slope        float64
	ThresholdBps uint64
}

func (TokenRecord) TableName() string { return "tokens" }
