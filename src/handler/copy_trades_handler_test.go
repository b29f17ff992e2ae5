package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"copyexecutor/src/executor"
	"copyexecutor/src/model"
	"copyexecutor/src/stream"
)

type mockLister struct {
	trades []model.PendingTrade
}

func (m *mockLister) List() []model.PendingTrade { return m.trades }

type mockActor struct {
	executeErr error
	approveErr error
	executed   []string
	skipped    []string
	approvals  int
	status     executor.Status
}

func (m *mockActor) Execute(ctx context.Context, tradeID string) error {
	m.executed = append(m.executed, tradeID)
	return m.executeErr
}

func (m *mockActor) Skip(ctx context.Context, tradeID string) {
	m.skipped = append(m.skipped, tradeID)
}

func (m *mockActor) Approve(ctx context.Context) error {
	m.approvals++
	return m.approveErr
}

func (m *mockActor) Status() executor.Status { return m.status }

type mockStream struct {
	state   stream.State
	attempt int
}

func (m *mockStream) State() stream.State   { return m.state }
func (m *mockStream) ReconnectAttempt() int { return m.attempt }

func tradeRequest(method, tradeID string) *http.Request {
	req := httptest.NewRequest(method, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tradeId", tradeID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPendingTradesHandler(t *testing.T) {
	lister := &mockLister{trades: []model.PendingTrade{
		{ID: "T1", Side: "BUY", Size: decimal.RequireFromString("1"), Price: decimal.RequireFromString("0.5")},
		{ID: "T2", Side: "SELL", Size: decimal.RequireFromString("2"), Price: decimal.RequireFromString("0.3")},
	}}

	rec := httptest.NewRecorder()
	PendingTradesHandler(lister)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body pendingTradesResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	if assert.Len(t, body.Trades, 2) {
		assert.Equal(t, "T1", body.Trades[0].ID)
	}
}

func TestExecuteTradeHandlerStatusCodes(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"success", nil, http.StatusOK},
		{"not found", executor.ErrTradeNotFound, http.StatusNotFound},
		{"busy", executor.ErrExecutionBusy, http.StatusConflict},
		{"already running", executor.ErrAlreadyRunning, http.StatusConflict},
		{"signer failure", assert.AnError, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actor := &mockActor{executeErr: tc.err}
			rec := httptest.NewRecorder()

			ExecuteTradeHandler(actor)(rec, tradeRequest(http.MethodPost, "T1"))

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, []string{"T1"}, actor.executed)
		})
	}
}

func TestExecuteTradeHandlerMissingID(t *testing.T) {
	actor := &mockActor{}
	rec := httptest.NewRecorder()

	ExecuteTradeHandler(actor)(rec, tradeRequest(http.MethodPost, ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, actor.executed)
}

func TestSkipTradeHandler(t *testing.T) {
	actor := &mockActor{}
	rec := httptest.NewRecorder()

	SkipTradeHandler(actor)(rec, tradeRequest(http.MethodPost, "T1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"T1"}, actor.skipped)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StatusSkipped, body["status"])
}

func TestApproveHandler(t *testing.T) {
	actor := &mockActor{}
	rec := httptest.NewRecorder()

	ApproveHandler(actor)(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, actor.approvals)
}

func TestApproveHandlerFailure(t *testing.T) {
	actor := &mockActor{approveErr: assert.AnError}
	rec := httptest.NewRecorder()

	ApproveHandler(actor)(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStreamStatusHandler(t *testing.T) {
	client := &mockStream{state: stream.StateOpen, attempt: 2}
	actor := &mockActor{status: executor.Status{ExecutingID: "T1", NeedsApproval: true}}
	rec := httptest.NewRecorder()

	StreamStatusHandler(client, actor)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body streamStatusResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, stream.StateOpen, body.State)
	assert.Equal(t, 2, body.ReconnectAttempt)
	assert.Equal(t, "T1", body.Execution.ExecutingID)
	assert.True(t, body.Execution.NeedsApproval)
}
