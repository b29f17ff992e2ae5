package client

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"copyexecutor/src/auth"
	"copyexecutor/src/cache"
	"copyexecutor/src/database"
	"copyexecutor/src/executor"
	"copyexecutor/src/pending"
	"copyexecutor/src/protocol"
	"copyexecutor/src/repository"
	"copyexecutor/src/stream"
	"copyexecutor/src/wallet"
)

// Client runs the headless sync client: no HTTP surface, just the
// stream connection and the execution workflow driven by server events.
type Client struct{}

func (t *Client) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	var recorder executor.Recorder
	if database.GetConfig().EnableDB {
		if err := database.InitMainDB(); err != nil {
			logrus.WithError(err).Error("Failed to connect to database")
			return err
		}
		recorder = repository.NewTradeLogRepository()
	}

	signer, err := wallet.NewSigner(wallet.GetConfig())
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize wallet signer")
		return err
	}

	session := auth.NewClient(auth.GetConfig(), signer)
	store := pending.NewStore()
	sink := cache.NewSink(cache.LogInvalidator{}, cache.LogNotifier{})

	var dispatcher *stream.Dispatcher
	conn := stream.NewClient(stream.GetConfig(), session, func(msg *protocol.Inbound) {
		dispatcher.Dispatch(msg)
	})

	orch := executor.NewOrchestrator(store, signer, conn, recorder, cache.LogNotifier{})
	dispatcher = stream.NewDispatcher(store, sink, orch)

	conn.Connect()
	defer conn.Disconnect()

	logrus.Info("Copy trade sync client running")
	<-ctx.Done()
	logrus.Info("Copy trade sync client stopping")
	return nil
}
