package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/handler"
)

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	Store  handler.PendingLister
	Actor  handler.TradeActor
	Stream handler.StreamStatus
}

// StartServer runs the HTTP server until SIGINT or SIGTERM, then shuts
// down gracefully and returns.
func StartServer(port string, deps Deps) {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("\"/healthcheck\" error")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/copy-trades/pending", handler.PendingTradesHandler(deps.Store))
		r.Post("/copy-trades/{tradeId}/execute", handler.ExecuteTradeHandler(deps.Actor))
		r.Post("/copy-trades/{tradeId}/skip", handler.SkipTradeHandler(deps.Actor))
		r.Post("/approve", handler.ApproveHandler(deps.Actor))
		r.Get("/stream/status", handler.StreamStatusHandler(deps.Stream, deps.Actor))
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
