package executor

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ApprovalCeiling is the collateral amount approved in one shot so
	// the user is not prompted again for every trade.
	ApprovalCeiling string `envconfig:"APPROVAL_CEILING" default:"1000000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
