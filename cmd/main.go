package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"copyexecutor/cmd/client"
	"copyexecutor/cmd/keys"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "copyexecutor CMD"
	app.Usage = "The copy trade executor command line interface"

	app.Commands = []cli.Command{
		clientCMD,
		keysCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	clientCMD = cli.Command{
		Name:        "client",
		Usage:       "run the sync client",
		Action:      clientAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the headless copy trade sync client`,
	}
	keysCMD = cli.Command{
		Name:        "keys",
		Usage:       "encrypt a wallet key",
		Action:      keysAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Encrypt a wallet private key for configuration`,
	}
)

func clientAction(_ *cli.Context) error {
	logrus.Info("Starting sync client CMD")

	syncClient := &client.Client{}
	if err := syncClient.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func keysAction(_ *cli.Context) error {
	return keys.Encrypt()
}
