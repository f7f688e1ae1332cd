package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/raphaelgruber/scrt-agent/internal/agent"
	"github.com/raphaelgruber/scrt-agent/internal/chain"
	"github.com/raphaelgruber/scrt-agent/internal/config"
	"github.com/raphaelgruber/scrt-agent/internal/db"
	"github.com/raphaelgruber/scrt-agent/internal/ledger"
	"github.com/raphaelgruber/scrt-agent/internal/llm"
	"github.com/raphaelgruber/scrt-agent/internal/memory"
	"github.com/raphaelgruber/scrt-agent/internal/metrics"
	"github.com/raphaelgruber/scrt-agent/internal/quote"
	"github.com/raphaelgruber/scrt-agent/internal/trading"
)

const (
	lcdTimeout    = 30 * time.Second
	ledgerTimeout = 60 * time.Second

	// Ollama loads the model on the first request.
	modelPingTimeout = 2 * time.Minute
)

// app is the context object shared by every command: one store handle, one
// ledger client, one wallet and the agent built on top of them.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error

	store    *db.Lazy
	local    *memory.LocalStore
	ledger   *ledger.Client
	wallet   *chain.Wallet
	gate     *trading.Gate
	history  *memory.Reconciler
	balances *agent.BalanceReader
	metrics  *metrics.Collector
	agent    *agent.Agent
}

// newApp builds every collaborator. Failures are wrapped with
// agent.ErrInitialization.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)

	a, err := buildApp(ctx, cfg, logger, readMnemonic)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("%w: %w", agent.ErrInitialization, err)
	}
	a.closeLog = closeLog

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
	return a, nil
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, mnemonic func() (string, error)) (*app, error) {
	a := &app{cfg: cfg, logger: logger, closeLog: func() error { return nil }, metrics: metrics.NewCollector()}

	open, err := storeOpener(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store = db.NewLazy(open, config.Component(logger, "store"))
	a.local = memory.NewLocalStore(a.store, config.Component(logger, "local"))

	a.ledger, err = ledger.New(ctx, ledger.Config{
		APIURL:     cfg.LedgerAPIURL,
		GatewayURL: cfg.LedgerGatewayURL,
		APIKey:     cfg.LedgerAPIKey,
		AppName:    cfg.LedgerAppName,
		PageSize:   cfg.LedgerPageSize,
		Timeout:    ledgerTimeout,
	}, config.Component(logger, "ledger"))
	if err != nil {
		return nil, err
	}

	phrase := cfg.Mnemonic
	if phrase == "" {
		if phrase, err = mnemonic(); err != nil {
			return nil, err
		}
	}
	a.wallet, err = chain.NewWallet(phrase, cfg.Bech32Prefix, cfg.HDPath)
	if err != nil {
		return nil, err
	}
	logger.Info("wallet loaded", "address", a.wallet.Address(), "chain_id", cfg.ChainID)

	lcd := chain.NewLCD(cfg.LCDURL, lcdTimeout)
	broadcaster := chain.NewBroadcaster(a.wallet, lcd, cfg.ChainID, config.Component(logger, "chain"))

	a.gate = trading.NewGate(a.local)
	pipeline := trading.NewPipeline(a.gate, broadcaster, swapRoute(cfg).SwapMsg, trading.PipelineConfig{
		Sender: a.wallet.Address(),
		Amount: cfg.TradeAmount,
		Fee: chain.Fee{
			GasLimit: cfg.TradeGasLimit,
			GasPrice: cfg.TradeGasPrice,
			Denom:    cfg.TradeFeeDenom,
		},
		ConfirmDelay: cfg.TradeConfirmDelay,
	}, a.metrics, config.Component(logger, "trading"))

	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, modelPingTimeout)
	err = model.Ping(pingCtx)
	cancel()
	if err != nil {
		return nil, err
	}
	logger.Info("model endpoint ready", "provider", cfg.LLMProvider, "model", model.Model())

	a.history = memory.NewReconciler(a.ledger, a.local, config.Component(logger, "memory"))
	a.balances = agent.NewBalanceReader(lcd, a.wallet.Address(), tokens(cfg), config.Component(logger, "balances"))

	deps := agent.Deps{
		Local:    a.local,
		Ledger:   a.ledger,
		History:  a.history,
		Gate:     a.gate,
		Trader:   pipeline,
		Model:    model,
		Quotes:   quote.New(cfg.QuoteURL, config.Component(logger, "quote")),
		Balances: a.balances,
		Metrics:  a.metrics,
		Logger:   config.Component(logger, "agent"),
	}
	if cfg.LedgerAuditLog {
		deps.ChatLog = a.ledger
	}
	a.agent, err = agent.New(deps)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// storeOpener returns the open function for the configured backend.
func storeOpener(cfg config.Config, logger *slog.Logger) (db.OpenFunc, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return func(ctx context.Context) (db.Store, error) {
			return db.OpenSQLite(ctx, cfg.SQLitePath, logger)
		}, nil
	case config.BackendSurrealDB:
		sc := db.SurrealConfig{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}
		return func(ctx context.Context) (db.Store, error) {
			return db.OpenSurreal(ctx, sc, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func swapRoute(cfg config.Config) chain.SwapRoute {
	return chain.SwapRoute{
		Token:  chain.Contract{Address: cfg.SUSDCAddress, CodeHash: cfg.SUSDCCodeHash},
		Router: chain.Contract{Address: cfg.RouterAddress, CodeHash: cfg.RouterCodeHash},
		Pair:   chain.Contract{Address: cfg.PairAddress, CodeHash: cfg.PairCodeHash},
	}
}

func tokens(cfg config.Config) []agent.Token {
	return []agent.Token{
		{Symbol: "sSCRT", Address: cfg.SSCRTAddress, ViewingKey: cfg.SSCRTViewingKey},
		{Symbol: "sUSDC", Address: cfg.SUSDCAddress, ViewingKey: cfg.SUSDCViewingKey},
	}
}

// readMnemonic prompts for the secret phrase without echo.
func readMnemonic() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("MNEMONIC is not set and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Wallet mnemonic: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read mnemonic: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Close closes the store once and flushes the log file.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.store.Close(ctx), a.closeLog())
}
