package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/model"
	"copyexecutor/src/security"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// Signer is the wallet collaborator: it checks and raises the collateral
// spend allowance on chain and submits signed copy orders through the
// relayer, returning the transaction hash.
type Signer struct {
	cfg        Config
	client     *ethclient.Client
	relayer    *resty.Client
	key        *ecdsa.PrivateKey
	address    common.Address
	collateral common.Address
	spender    common.Address
	erc20      abi.ABI
}

func NewSigner(cfg Config) (*Signer, error) {
	if cfg.EncryptedPrivateKey == "" {
		return nil, fmt.Errorf("WALLET_PRIVATE_KEY_ENC not set")
	}
	keyHex, err := security.DecryptString(cfg.EncryptedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet key: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	s := &Signer{
		cfg:        cfg,
		client:     client,
		relayer:    resty.New().SetBaseURL(cfg.RelayerURL).SetTimeout(30 * time.Second),
		key:        key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		collateral: common.HexToAddress(cfg.CollateralAddress),
		spender:    common.HexToAddress(cfg.SpenderAddress),
		erc20:      parsed,
	}

	logger.WithField("address", s.address.Hex()).Info("Wallet signer ready")
	return s, nil
}

func (s *Signer) Address() string {
	return s.address.Hex()
}

// CheckAllowance reports whether the exchange spender may move at least
// amount of collateral on the wallet's behalf.
func (s *Signer) CheckAllowance(ctx context.Context, amount decimal.Decimal) (bool, error) {
	data, err := s.erc20.Pack("allowance", s.address, s.spender)
	if err != nil {
		return false, fmt.Errorf("pack allowance call: %w", err)
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.collateral, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("call allowance: %w", err)
	}

	values, err := s.erc20.Unpack("allowance", out)
	if err != nil {
		return false, fmt.Errorf("unpack allowance: %w", err)
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return false, fmt.Errorf("unexpected allowance type %T", values[0])
	}

	needed := s.toUnits(amount)
	sufficient := allowance.Cmp(needed) >= 0
	logger.WithFields(logger.Fields{
		"allowance":  allowance.String(),
		"needed":     needed.String(),
		"sufficient": sufficient,
	}).Debug("Allowance checked")

	return sufficient, nil
}

// Approve raises the spend allowance to ceiling and waits for the
// transaction to be mined.
func (s *Signer) Approve(ctx context.Context, ceiling decimal.Decimal) error {
	data, err := s.erc20.Pack("approve", s.spender, s.toUnits(ceiling))
	if err != nil {
		return fmt.Errorf("pack approve call: %w", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, s.collateral, big.NewInt(0), s.cfg.ApproveGasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(s.cfg.ChainID)), s.key)
	if err != nil {
		return fmt.Errorf("sign approve tx: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("send approve tx: %w", err)
	}

	logger.WithField("txHash", signedTx.Hash().Hex()).Info("Approval transaction sent")

	receipt, err := bind.WaitMined(ctx, s.client, signedTx)
	if err != nil {
		return fmt.Errorf("wait approve tx: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("approve tx %s reverted", signedTx.Hash().Hex())
	}

	logger.WithField("ceiling", ceiling.String()).Info("Spend allowance approved")
	return nil
}

type relayerOrder struct {
	Maker     string `json:"maker"`
	MarketID  string `json:"market_id"`
	Side      string `json:"side"`
	Size      string `json:"size"`
	Price     string `json:"price"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

type relayerResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error,omitempty"`
}

// SubmitTrade signs the copy order and submits it through the relayer.
// The relayer's transaction hash is the confirmation reference.
func (s *Signer) SubmitTrade(ctx context.Context, trade model.PendingTrade) (string, error) {
	order := relayerOrder{
		Maker:    s.address.Hex(),
		MarketID: trade.MarketID,
		Side:     trade.Side,
		Size:     trade.Size.String(),
		Price:    trade.Price.String(),
		Salt:     fmt.Sprintf("%d", time.Now().UnixNano()),
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}
	order.Signature, err = s.SignMessage(payload)
	if err != nil {
		return "", fmt.Errorf("sign order: %w", err)
	}

	var result relayerResponse
	resp, err := s.relayer.R().
		SetContext(ctx).
		SetBody(order).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("submit order: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.TxHash == "" {
		return "", fmt.Errorf("submit order: relayer returned no tx hash: %s", result.Error)
	}

	logger.WithFields(logger.Fields{
		"tradeId": trade.ID,
		"txHash":  result.TxHash,
	}).Info("Order submitted")

	return result.TxHash, nil
}

// SignMessage produces an EIP-191 personal signature over message.
func (s *Signer) SignMessage(message []byte) (string, error) {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func (s *Signer) toUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(s.cfg.CollateralDecimals).BigInt()
}
