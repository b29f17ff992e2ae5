package stream

import (
	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/cache"
	"copyexecutor/src/model"
	"copyexecutor/src/pending"
	"copyexecutor/src/protocol"
)

// Reconciler applies server-authoritative terminal trade statuses.
type Reconciler interface {
	Reconcile(tradeID, status string)
}

// Dispatcher routes inbound frames: copy-trade events to the pending
// store, terminal statuses to the reconciler, portfolio events to the
// cache sink. It runs on the read-loop goroutine, so handlers see
// messages strictly in arrival order.
type Dispatcher struct {
	store      *pending.Store
	sink       *cache.Sink
	reconciler Reconciler
}

func NewDispatcher(store *pending.Store, sink *cache.Sink, reconciler Reconciler) *Dispatcher {
	return &Dispatcher{store: store, sink: sink, reconciler: reconciler}
}

func (d *Dispatcher) Dispatch(msg *protocol.Inbound) {
	switch msg.Type {
	case protocol.TypeConnected, protocol.TypeHeartbeat, protocol.TypePong:
		logger.WithField("type", msg.Type).Debug("Liveness frame")

	case protocol.TypePendingTrades:
		d.store.Snapshot(msg.Trades)

	case protocol.TypeNewCopyTrade:
		if msg.Trade == nil {
			logger.Debug("new_copy_trade without trade payload, ignoring")
			return
		}
		if d.store.Upsert(*msg.Trade) {
			logger.WithFields(logger.Fields{
				"tradeId": msg.Trade.ID,
				"market":  msg.Trade.MarketTitle,
			}).Info("New copy trade")
		}

	case protocol.TypeTradeStatus:
		if msg.Status != model.StatusExecuted && msg.Status != model.StatusSkipped {
			logger.WithFields(logger.Fields{
				"tradeId": msg.TradeID,
				"status":  msg.Status,
			}).Debug("Non-terminal trade_status, ignoring")
			return
		}
		d.reconciler.Reconcile(msg.TradeID, msg.Status)

	case protocol.TypePositionUpdate, protocol.TypePositionOpened,
		protocol.TypePositionClosed, protocol.TypeCopyUpdated:
		d.sink.Handle(msg)

	default:
		logger.WithField("type", msg.Type).Debug("Unrecognized frame type, ignoring")
	}
}
