package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/executor"
	"copyexecutor/src/model"
	"copyexecutor/src/stream"
)

// PendingLister is the read-only view of the pending trade store.
type PendingLister interface {
	List() []model.PendingTrade
}

// TradeActor is the user-action surface of the execution orchestrator.
type TradeActor interface {
	Execute(ctx context.Context, tradeID string) error
	Skip(ctx context.Context, tradeID string)
	Approve(ctx context.Context) error
	Status() executor.Status
}

// StreamStatus exposes the connection manager's observable state.
type StreamStatus interface {
	State() stream.State
	ReconnectAttempt() int
}

type pendingTradesResponse struct {
	Trades []model.PendingTrade `json:"trades"`
	Total  int                  `json:"total"`
}

type streamStatusResponse struct {
	State            stream.State    `json:"state"`
	ReconnectAttempt int             `json:"reconnect_attempt"`
	Execution        executor.Status `json:"execution"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// PendingTradesHandler mirrors the backend's REST view of the queue.
func PendingTradesHandler(store PendingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trades := store.List()
		writeJSON(w, http.StatusOK, pendingTradesResponse{Trades: trades, Total: len(trades)})
	}
}

// ExecuteTradeHandler triggers the execution workflow for one trade.
func ExecuteTradeHandler(actor TradeActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tradeID := chi.URLParam(r, "tradeId")
		if tradeID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tradeId is required"})
			return
		}

		if err := actor.Execute(r.Context(), tradeID); err != nil {
			switch {
			case errors.Is(err, executor.ErrTradeNotFound):
				writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			case errors.Is(err, executor.ErrExecutionBusy), errors.Is(err, executor.ErrAlreadyRunning):
				writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			default:
				logger.WithError(err).WithField("tradeId", tradeID).Error("Execute failed")
				writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"trade_id": tradeID, "status": model.StatusExecuted})
	}
}

// SkipTradeHandler skips one pending trade.
func SkipTradeHandler(actor TradeActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tradeID := chi.URLParam(r, "tradeId")
		if tradeID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tradeId is required"})
			return
		}

		actor.Skip(r.Context(), tradeID)
		writeJSON(w, http.StatusOK, map[string]string{"trade_id": tradeID, "status": model.StatusSkipped})
	}
}

// ApproveHandler retries the spend approval.
func ApproveHandler(actor TradeActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := actor.Approve(r.Context()); err != nil {
			logger.WithError(err).Error("Approval failed")
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
	}
}

// StreamStatusHandler reports connection and execution state.
func StreamStatusHandler(client StreamStatus, actor TradeActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, streamStatusResponse{
			State:            client.State(),
			ReconnectAttempt: client.ReconnectAttempt(),
			Execution:        actor.Status(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("Failed to write response")
	}
}
