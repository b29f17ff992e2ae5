package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/auth"
	"copyexecutor/src/cache"
	"copyexecutor/src/database"
	"copyexecutor/src/executor"
	"copyexecutor/src/pending"
	"copyexecutor/src/protocol"
	"copyexecutor/src/repository"
	"copyexecutor/src/server"
	"copyexecutor/src/stream"
	"copyexecutor/src/wallet"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	var recorder executor.Recorder
	if database.GetConfig().EnableDB {
		if err := database.InitMainDB(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		recorder = repository.NewTradeLogRepository()
	}

	signer, err := wallet.NewSigner(wallet.GetConfig())
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize wallet signer")
	}

	session := auth.NewClient(auth.GetConfig(), signer)
	store := pending.NewStore()
	sink := cache.NewSink(cache.LogInvalidator{}, cache.LogNotifier{})

	var dispatcher *stream.Dispatcher
	client := stream.NewClient(stream.GetConfig(), session, func(msg *protocol.Inbound) {
		dispatcher.Dispatch(msg)
	})

	orch := executor.NewOrchestrator(store, signer, client, recorder, cache.LogNotifier{})
	dispatcher = stream.NewDispatcher(store, sink, orch)

	client.Connect()
	defer client.Disconnect()

	server.StartServer(server.GetConfig().Port, server.Deps{
		Store:  store,
		Actor:  orch,
		Stream: client,
	})
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
