// Package ledger is the client for the durable, content-addressed memory
// ledger: an upload API that tags every blob and a read gateway that serves
// blobs by content address.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Sentinel errors for ledger operations.
var (
	// ErrLedger marks any durable store failure.
	ErrLedger = errors.New("ledger error")

	// ErrNoRecordID indicates an upload that did not return a record identifier.
	ErrNoRecordID = errors.New("upload returned no record id")

	// ErrNotReady indicates the client never finished logging in.
	ErrNotReady = errors.New("ledger client not ready")
)

// Config configures the ledger client.
type Config struct {
	APIURL     string
	GatewayURL string
	APIKey     string
	AppName    string
	PageSize   int
	Timeout    time.Duration
}

// Client talks to the ledger upload API and the read gateway. It is built once
// at startup; login runs in the background and Ready reports its outcome.
type Client struct {
	api     *resty.Client
	gateway *resty.Client
	cfg     Config
	logger  *slog.Logger

	ready    chan struct{}
	loginErr error
}

// New creates a client and starts logging in. It fails immediately when the
// configuration cannot possibly work.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: LEDGER_API_KEY is not set", ErrLedger)
	}
	if cfg.APIURL == "" || cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: ledger API and gateway URLs are required", ErrLedger)
	}
	if cfg.PageSize <= 0 || cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		api: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.APIURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		gateway: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.GatewayURL, "/")).
			SetTimeout(cfg.Timeout),
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
	}

	go c.login(context.WithoutCancel(ctx))
	return c, nil
}

type loginResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

func (c *Client) login(ctx context.Context) {
	defer close(c.ready)

	c.logger.Info("logging in to ledger", "url", c.cfg.APIURL, "app", c.cfg.AppName)
	var out loginResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(map[string]string{"apiKey": c.cfg.APIKey, "appName": c.cfg.AppName}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		c.loginErr = fmt.Errorf("login: %w", err)
	} else if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		c.loginErr = fmt.Errorf("login: status %d", resp.StatusCode())
	} else if out.Data.AccessToken == "" {
		c.loginErr = errors.New("login: no access token in response")
	}

	if c.loginErr != nil {
		c.logger.Error("ledger login failed", "error", c.loginErr)
		return
	}
	c.api.SetAuthToken(out.Data.AccessToken)
	c.logger.Info("ledger client ready")
}

// Ready blocks until login has finished. It returns ErrNotReady if login
// failed or ctx ends first.
func (c *Client) Ready(ctx context.Context) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
	if c.loginErr != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, c.loginErr)
	}
	return nil
}

// ledgerError wraps err with ErrLedger and the failing operation name.
func ledgerError(op string, err error) error {
	if errors.Is(err, ErrLedger) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrLedger, op, err)
}
