package wallet

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RPCURL              string `envconfig:"CHAIN_RPC_URL" default:"https://polygon-rpc.com"`
	ChainID             int64  `envconfig:"CHAIN_ID" default:"137"`
	EncryptedPrivateKey string `envconfig:"WALLET_PRIVATE_KEY_ENC"`
	CollateralAddress   string `envconfig:"COLLATERAL_ADDRESS" default:"0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"`
	SpenderAddress      string `envconfig:"EXCHANGE_SPENDER_ADDRESS" default:"0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"`
	CollateralDecimals  int32  `envconfig:"COLLATERAL_DECIMALS" default:"6"`
	RelayerURL          string `envconfig:"RELAYER_URL" default:"https://relayer.polymarket.com"`
	ApproveGasLimit     uint64 `envconfig:"APPROVE_GAS_LIMIT" default:"100000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
