package protocol

import (
	"encoding/json"
	"fmt"

	"copyexecutor/src/model"
)

// Inbound frame types.
const (
	TypeConnected      = "connected"
	TypeHeartbeat      = "heartbeat"
	TypePong           = "pong"
	TypePendingTrades  = "pending_trades"
	TypeNewCopyTrade   = "new_copy_trade"
	TypeTradeStatus    = "trade_status"
	TypePositionUpdate = "position_update"
	TypePositionOpened = "position_opened"
	TypePositionClosed = "position_closed"
	TypeCopyUpdated    = "copy_updated"
)

// Outbound frame types.
const (
	TypePing         = "ping"
	TypeGetPending   = "get_pending"
	TypeExecuteTrade = "execute_trade"
	TypeSkipTrade    = "skip_trade"
)

// Inbound is the discriminated union the server sends. Only the fields
// matching Type are populated; everything else stays zero.
type Inbound struct {
	Type    string               `json:"type"`
	Trades  []model.PendingTrade `json:"trades,omitempty"`
	Trade   *model.PendingTrade  `json:"trade,omitempty"`
	TradeID string               `json:"trade_id,omitempty"`
	Status  string               `json:"status,omitempty"`
	TxHash  string               `json:"tx_hash,omitempty"`
	Data    json.RawMessage      `json:"data,omitempty"`
}

// Outbound is a client frame. Zero-valued fields are omitted.
type Outbound struct {
	Type    string `json:"type"`
	TradeID string `json:"trade_id,omitempty"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// Decode parses a raw text frame. Frames that are not JSON objects with
// a type field are rejected; callers drop them without touching state.
func Decode(raw []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("frame missing type field")
	}
	return &msg, nil
}

func Ping() Outbound {
	return Outbound{Type: TypePing}
}

func GetPending() Outbound {
	return Outbound{Type: TypeGetPending}
}

func ExecuteTrade(tradeID, txHash string) Outbound {
	return Outbound{Type: TypeExecuteTrade, TradeID: tradeID, TxHash: txHash}
}

func SkipTrade(tradeID string) Outbound {
	return Outbound{Type: TypeSkipTrade, TradeID: tradeID}
}
