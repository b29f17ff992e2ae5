package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/cache"
	"copyexecutor/src/model"
	"copyexecutor/src/pending"
	"copyexecutor/src/protocol"
)

var (
	ErrTradeNotFound  = errors.New("trade is not pending")
	ErrExecutionBusy  = errors.New("another execution is in flight")
	ErrAlreadyRunning = errors.New("execution already in flight for this trade")
)

// Signer is the external wallet collaborator. Approval and submission
// block until the chain confirms or rejects; the orchestrator never
// cancels an in-flight signer call.
type Signer interface {
	CheckAllowance(ctx context.Context, amount decimal.Decimal) (bool, error)
	Approve(ctx context.Context, ceiling decimal.Decimal) error
	SubmitTrade(ctx context.Context, trade model.PendingTrade) (string, error)
}

// Sender pushes an outbound frame to the server. Returns false when the
// stream is not open; the frame is dropped and the reconnect snapshot
// is the recovery path.
type Sender interface {
	Send(msg protocol.Outbound) bool
}

// Recorder persists the audit log. May be backed by nothing when the
// database is disabled.
type Recorder interface {
	Record(ctx context.Context, entry *model.TradeLog) error
}

// Status is a point-in-time view of the orchestrator for the HTTP layer.
type Status struct {
	ExecutingID   string `json:"executing_id,omitempty"`
	NeedsApproval bool   `json:"needs_approval"`
	IsApproving   bool   `json:"is_approving"`
}

// Orchestrator drives the approval/execution state machine for pending
// trades. It mutates the store only through its exported operations and
// keeps at most one execution in flight.
type Orchestrator struct {
	store    *pending.Store
	signer   Signer
	sender   Sender
	recorder Recorder
	notifier cache.Notifier
	ceiling  decimal.Decimal

	mu            sync.Mutex
	executingID   string
	needsApproval bool
	isApproving   bool
}

func NewOrchestrator(store *pending.Store, signer Signer, sender Sender, recorder Recorder, notifier cache.Notifier) *Orchestrator {
	config := GetConfig()
	ceiling, err := decimal.NewFromString(config.ApprovalCeiling)
	if err != nil {
		logger.WithError(err).WithField("ceiling", config.ApprovalCeiling).
			Warn("Invalid approval ceiling, using default")
		ceiling = decimal.NewFromInt(1_000_000)
	}
	return &Orchestrator{
		store:    store,
		signer:   signer,
		sender:   sender,
		recorder: recorder,
		notifier: notifier,
		ceiling:  ceiling,
	}
}

// Execute runs the full workflow for one pending trade: allowance
// pre-flight, one-shot approval when needed, submission, server
// acknowledgement and removal. A failed submission leaves the trade in
// the store for the user to retry or skip.
func (o *Orchestrator) Execute(ctx context.Context, tradeID string) error {
	o.mu.Lock()
	trade, ok := o.store.Get(tradeID)
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}
	if o.executingID == tradeID {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	if o.executingID != "" {
		o.mu.Unlock()
		return ErrExecutionBusy
	}
	o.executingID = tradeID
	o.mu.Unlock()

	log := logger.WithFields(logger.Fields{
		"tradeId": tradeID,
		"market":  trade.MarketTitle,
		"side":    trade.Side,
		"size":    trade.Size.String(),
		"price":   trade.Price.String(),
	})
	log.Info("Executing copy trade")

	if err := o.ensureAllowance(ctx, trade.Cost()); err != nil {
		o.clearInFlight(tradeID)
		o.notify("error", "Approval required before this trade can execute")
		return err
	}

	txHash, err := o.signer.SubmitTrade(ctx, trade)
	if err != nil {
		log.WithError(err).Error("Trade submission failed")
		o.clearInFlight(tradeID)
		o.record(ctx, trade, model.TradeLogActionFailed, "", err.Error())
		o.notify("error", fmt.Sprintf("Copy trade failed: %s", trade.MarketTitle))
		return fmt.Errorf("submit trade %s: %w", tradeID, err)
	}

	o.mu.Lock()
	current := o.executingID == tradeID
	if current {
		o.executingID = ""
	}
	o.mu.Unlock()

	// The trade may have been skipped or reconciled away while the
	// signer was working; completing then would resurrect it.
	if !current {
		log.WithField("txHash", txHash).Warn("Trade no longer current after submission, skipping acknowledgement")
		return nil
	}

	o.sender.Send(protocol.ExecuteTrade(tradeID, txHash))
	o.store.RemoveByID(tradeID)
	o.record(ctx, trade, model.TradeLogActionExecuted, txHash, "")
	o.notify("info", fmt.Sprintf("Copy trade executed: %s", trade.MarketTitle))

	log.WithField("txHash", txHash).Info("Copy trade executed")
	return nil
}

// Skip removes the trade immediately and tells the server. The later
// trade_status acknowledgement is an idempotent no-op.
func (o *Orchestrator) Skip(ctx context.Context, tradeID string) {
	trade, ok := o.store.Get(tradeID)

	o.mu.Lock()
	if o.executingID == tradeID {
		o.executingID = ""
	}
	o.mu.Unlock()

	o.sender.Send(protocol.SkipTrade(tradeID))
	if o.store.RemoveByID(tradeID) {
		logger.WithField("tradeId", tradeID).Info("Copy trade skipped")
	}
	if ok {
		o.record(ctx, trade, model.TradeLogActionSkipped, "", "")
	}
}

// Reconcile applies a server-reported terminal status. The server wins
// over any local optimistic state, including an in-flight execution.
func (o *Orchestrator) Reconcile(tradeID, status string) {
	o.mu.Lock()
	if o.executingID == tradeID {
		logger.WithFields(logger.Fields{
			"tradeId": tradeID,
			"status":  status,
		}).Warn("Server resolved a trade still marked in flight")
		o.executingID = ""
	}
	o.mu.Unlock()

	if o.store.RemoveByID(tradeID) {
		logger.WithFields(logger.Fields{
			"tradeId": tradeID,
			"status":  status,
		}).Info("Trade resolved by server")
	} else {
		logger.WithField("tradeId", tradeID).Debug("trade_status for unknown trade, ignoring")
	}
}

// Approve retries the spend approval after an earlier failure.
func (o *Orchestrator) Approve(ctx context.Context) error {
	o.mu.Lock()
	o.needsApproval = true
	o.isApproving = true
	o.mu.Unlock()

	return o.finishApproval(ctx)
}

func (o *Orchestrator) ensureAllowance(ctx context.Context, cost decimal.Decimal) error {
	sufficient, err := o.signer.CheckAllowance(ctx, cost)
	if err != nil {
		return fmt.Errorf("allowance check: %w", err)
	}
	if sufficient {
		return nil
	}

	logger.WithField("ceiling", o.ceiling.String()).Info("Insufficient allowance, requesting approval")
	o.mu.Lock()
	o.needsApproval = true
	o.isApproving = true
	o.mu.Unlock()

	return o.finishApproval(ctx)
}

func (o *Orchestrator) finishApproval(ctx context.Context) error {
	err := o.signer.Approve(ctx, o.ceiling)

	o.mu.Lock()
	o.isApproving = false
	if err == nil {
		o.needsApproval = false
	}
	o.mu.Unlock()

	if err != nil {
		logger.WithError(err).Error("Spend approval failed")
		return fmt.Errorf("approve spend: %w", err)
	}
	logger.Info("Spend approval confirmed")
	return nil
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		ExecutingID:   o.executingID,
		NeedsApproval: o.needsApproval,
		IsApproving:   o.isApproving,
	}
}

func (o *Orchestrator) clearInFlight(tradeID string) {
	o.mu.Lock()
	if o.executingID == tradeID {
		o.executingID = ""
	}
	o.mu.Unlock()
}

func (o *Orchestrator) notify(level, message string) {
	if o.notifier != nil {
		o.notifier.Notify(level, message)
	}
}

func (o *Orchestrator) record(ctx context.Context, trade model.PendingTrade, action, txHash, detail string) {
	if o.recorder == nil {
		return
	}
	entry := &model.TradeLog{
		ID:            uuid.NewString(),
		TradeID:       trade.ID,
		Action:        action,
		TxHash:        txHash,
		TraderAddress: trade.TraderAddress,
		MarketID:      trade.MarketID,
		MarketTitle:   trade.MarketTitle,
		Side:          trade.Side,
		Size:          trade.Size,
		Price:         trade.Price,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.recorder.Record(ctx, entry); err != nil {
		logger.WithError(err).WithField("tradeId", trade.ID).Error("Failed to record trade log")
	}
}
