package cache

import (
	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/protocol"
)

// Cache keys invalidated by server portfolio events.
const (
	KeyPortfolio          = "portfolio"
	KeyPortfolioPositions = "portfolio-positions"
	KeyCopies             = "copies"
)

// Invalidator marks externally owned cached views as stale. The refresh
// itself happens elsewhere; calls never block on it.
type Invalidator interface {
	Invalidate(keys ...string)
}

// Notifier delivers a best-effort user-facing message.
type Notifier interface {
	Notify(level, message string)
}

// Sink translates portfolio events into cache invalidations. It owns no
// state of its own.
type Sink struct {
	cache    Invalidator
	notifier Notifier
}

func NewSink(cache Invalidator, notifier Notifier) *Sink {
	return &Sink{cache: cache, notifier: notifier}
}

// Handle consumes one inbound portfolio event. Unknown types fall
// through silently.
func (s *Sink) Handle(msg *protocol.Inbound) {
	switch msg.Type {
	case protocol.TypePositionUpdate:
		s.cache.Invalidate(KeyPortfolio, KeyPortfolioPositions)

	case protocol.TypePositionOpened:
		s.cache.Invalidate(KeyPortfolio, KeyPortfolioPositions)
		if s.notifier != nil {
			s.notifier.Notify("info", "A copied position was opened")
		}

	case protocol.TypePositionClosed:
		s.cache.Invalidate(KeyPortfolio, KeyPortfolioPositions)
		if s.notifier != nil {
			s.notifier.Notify("info", "A copied position was closed")
		}

	case protocol.TypeCopyUpdated:
		s.cache.Invalidate(KeyCopies)
	}
}

// LogNotifier writes notifications to the process log. It stands in when
// no richer user-notification channel is wired up.
type LogNotifier struct{}

func (LogNotifier) Notify(level, message string) {
	entry := logger.WithField("notification", true)
	switch level {
	case "error":
		entry.Error(message)
	case "warn":
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}

// LogInvalidator logs invalidations; used when the owning application
// has not registered a real cache.
type LogInvalidator struct{}

func (LogInvalidator) Invalidate(keys ...string) {
	logger.WithField("keys", keys).Debug("Cache invalidation")
}
