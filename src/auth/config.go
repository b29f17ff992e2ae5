package auth

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL string `envconfig:"API_BASE_URL" default:"http://localhost:8000"`
	AppHost string `envconfig:"APP_HOST" default:"localhost"`
	ChainID int64  `envconfig:"CHAIN_ID" default:"137"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
