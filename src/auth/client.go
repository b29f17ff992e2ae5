package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// MessageSigner signs a SIWE login message with the active wallet key
// and reports the wallet address the backend should recover.
type MessageSigner interface {
	Address() string
	SignMessage(message []byte) (string, error)
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

type verifyRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Token string `json:"token"`
}

// Client performs the sign-in-with-Ethereum handshake against the
// backend and caches the resulting session token. It implements
// stream.TokenProvider; the stream re-reads the token on every
// reconnect attempt, so Logout takes effect at the next attempt.
type Client struct {
	cfg    Config
	http   *resty.Client
	signer MessageSigner

	mu    sync.Mutex
	token string
}

func NewClient(cfg Config, signer MessageSigner) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2)

	return &Client{cfg: cfg, http: httpClient, signer: signer}
}

// Login runs nonce → sign → verify and stores the session token.
func (c *Client) Login(ctx context.Context) error {
	var nonce nonceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&nonce).
		Get("/api/auth/nonce")
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch nonce: status %d", resp.StatusCode())
	}

	message := c.buildSIWEMessage(nonce.Nonce)
	signature, err := c.signer.SignMessage([]byte(message))
	if err != nil {
		return fmt.Errorf("sign login message: %w", err)
	}

	var verified verifyResponse
	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(verifyRequest{Message: message, Signature: signature}).
		SetResult(&verified).
		Post("/api/auth/verify")
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("verify signature: status %d", resp.StatusCode())
	}
	if verified.Token == "" {
		return fmt.Errorf("verify signature: empty token in response")
	}

	c.mu.Lock()
	c.token = verified.Token
	c.mu.Unlock()

	logger.WithField("address", c.signer.Address()).Info("Session authenticated")
	return nil
}

// Token returns the cached session token, logging in first when none is
// held yet.
func (c *Client) Token() (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	if err := c.Login(context.Background()); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

// Logout drops the session token. Connection attempts made after this
// are abandoned until the next successful Login.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	logger.Info("Session token cleared")
}

func (c *Client) buildSIWEMessage(nonce string) string {
	return fmt.Sprintf(
		"%s wants you to sign in with your Ethereum account:\n%s\n\nSign in to the copy trading dashboard\n\nURI: %s\nVersion: 1\nChain ID: %d\nNonce: %s\nIssued At: %s",
		c.cfg.AppHost,
		c.signer.Address(),
		c.cfg.BaseURL,
		c.cfg.ChainID,
		nonce,
		time.Now().UTC().Format(time.RFC3339),
	)
}
