package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade lifecycle statuses. Pending is the only status ever held in the
// store; the rest are transient orchestrator bookkeeping or terminal.
const (
	StatusPending   = "pending"
	StatusApproving = "approving"
	StatusExecuting = "executing"
	StatusExecuted  = "executed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// PendingTrade is one trade-copy opportunity awaiting a user decision.
// Size and price travel as decimal strings on the wire.
type PendingTrade struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	CopyConfigID    string          `json:"copy_config_id"`
	TraderAddress   string          `json:"trader_address"`
	MarketID        string          `json:"market_id"`
	MarketTitle     string          `json:"market_title"`
	MarketSlug      string          `json:"market_slug"`
	EventSlug       string          `json:"event_slug"`
	Side            string          `json:"side"`
	Size            decimal.Decimal `json:"size"`
	Price           decimal.Decimal `json:"price"`
	OriginalTradeID string          `json:"original_trade_id"`
	Timestamp       int64           `json:"timestamp"`
	CreatedAt       time.Time       `json:"created_at"`
	Status          string          `json:"status"`
}

// Cost is the collateral amount the copy would spend (size * price).
func (t PendingTrade) Cost() decimal.Decimal {
	return t.Size.Mul(t.Price)
}
