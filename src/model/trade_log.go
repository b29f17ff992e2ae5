package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeLogActionExecuted = "executed"
	TradeLogActionSkipped  = "skipped"
	TradeLogActionFailed   = "failed"
)

// TradeLog is the audit row written for every local decision on a
// pending copy trade.
type TradeLog struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	TradeID       string          `gorm:"index;size:100" json:"trade_id"`
	Action        string          `gorm:"size:20;not null" json:"action"`
	TxHash        string          `gorm:"size:100" json:"tx_hash,omitempty"`
	TraderAddress string          `gorm:"size:64" json:"trader_address"`
	MarketID      string          `gorm:"size:100" json:"market_id"`
	MarketTitle   string          `json:"market_title"`
	Side          string          `gorm:"size:10" json:"side"`
	Size          decimal.Decimal `gorm:"type:numeric" json:"size"`
	Price         decimal.Decimal `gorm:"type:numeric" json:"price"`
	Detail        string          `json:"detail,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (TradeLog) TableName() string {
	return "trade_logs"
}
