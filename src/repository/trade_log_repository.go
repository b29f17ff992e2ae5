package repository

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"copyexecutor/src/database"
	"copyexecutor/src/model"
)

// TradeLogRepository persists the audit trail of local trade decisions.
type TradeLogRepository struct {
	db *gorm.DB
}

// NewTradeLogRepository creates a repository backed by the main database.
func NewTradeLogRepository() *TradeLogRepository {
	return &TradeLogRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeLogRepository) WithDB(db *gorm.DB) *TradeLogRepository {
	return &TradeLogRepository{db: db}
}

// Record inserts one trade log row.
func (r *TradeLogRepository) Record(ctx context.Context, entry *model.TradeLog) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "TradeLogRepository",
		"op":      "Record",
		"tradeId": entry.TradeID,
		"action":  entry.Action,
	}).Debug("Recording trade log")

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("record trade log: %w", err)
	}
	return nil
}

// ListRecent returns the newest trade logs, most recent first.
func (r *TradeLogRepository) ListRecent(ctx context.Context, limit int) ([]model.TradeLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var logs []model.TradeLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list trade logs: %w", err)
	}
	return logs, nil
}

// FindByTradeID returns every log row for one trade id in write order.
func (r *TradeLogRepository) FindByTradeID(ctx context.Context, tradeID string) ([]model.TradeLog, error) {
	var logs []model.TradeLog
	err := r.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("find trade logs for %s: %w", tradeID, err)
	}
	return logs, nil
}
