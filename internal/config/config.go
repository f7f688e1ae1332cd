// Package config loads agent settings from the environment and an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Local store backends.
const (
	BackendSQLite    = "sqlite"
	BackendSurrealDB = "surrealdb"
)

// FileEnvVar names the optional YAML file layered under the environment.
const FileEnvVar = "SCRTAGENT_CONFIG"

// Config holds all configuration values.
type Config struct {
	// Logging
	LogFile  string
	LogLevel slog.Level

	// Local store
	StoreBackend string
	SQLitePath   string

	// SurrealDB connection (STORE_BACKEND=surrealdb)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM
	LLMProvider     string
	LLMModel        string
	LLMBaseURL      string
	LLMTemperature  float64
	OpenAIAPIKey    string
	AnthropicAPIKey string
	AWSRegion       string

	// Chain
	LCDURL       string
	ChainID      string
	Mnemonic     string
	Bech32Prefix string
	HDPath       string

	// Tokens
	SSCRTAddress    string
	SUSDCAddress    string
	SUSDCCodeHash   string
	SSCRTViewingKey string
	SUSDCViewingKey string

	// Shade swap route
	RouterAddress  string
	RouterCodeHash string
	PairAddress    string
	PairCodeHash   string

	// Trade
	TradeAmount       string
	TradeGasLimit     uint64
	TradeGasPrice     float64
	TradeFeeDenom     string
	TradeConfirmDelay time.Duration

	// Ledger
	LedgerAPIURL     string
	LedgerGatewayURL string
	LedgerAPIKey     string
	LedgerAppName    string
	LedgerPageSize   int
	LedgerAuditLog   bool

	// Misc
	QuoteURL   string
	UserID     string
	ServerAddr string
}

// Load reads configuration from environment variables, falling back to the
// YAML file named by SCRTAGENT_CONFIG and then to built-in defaults.
func Load() (Config, error) {
	file := map[string]string{}
	if path := os.Getenv(FileEnvVar); path != "" {
		var err error
		file, err = loadFile(path)
		if err != nil {
			return Config{}, err
		}
	}
	return fromLookup(lookupChain(file)), nil
}

type lookupFunc func(key string) (string, bool)

// lookupChain prefers real environment variables over file values.
func lookupChain(file map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		if val := os.Getenv(key); val != "" {
			return val, true
		}
		val, ok := file[key]
		return val, ok && val != ""
	}
}

func fromLookup(lookup lookupFunc) Config {
	get := func(key, defaultVal string) string {
		if val, ok := lookup(key); ok {
			return strings.TrimSpace(val)
		}
		return defaultVal
	}

	return Config{
		LogFile:  get("LOG_FILE", "/tmp/scrtagent.log"),
		LogLevel: parseLogLevel(get("LOG_LEVEL", "INFO")),

		StoreBackend: strings.ToLower(get("STORE_BACKEND", BackendSQLite)),
		SQLitePath:   get("SQLITE_PATH", "./memory.db"),

		SurrealDBURL:       get("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: get("SURREALDB_NAMESPACE", "scrtagent"),
		SurrealDBDatabase:  get("SURREALDB_DATABASE", "memory"),
		SurrealDBUser:      get("SURREALDB_USER", "root"),
		SurrealDBPass:      get("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: get("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     strings.ToLower(get("LLM_PROVIDER", ProviderOllama)),
		LLMModel:        get("LLM_MODEL", "deepseek-r1:70b"),
		LLMBaseURL:      get("LLM_BASE_URL", "http://localhost:11434"),
		LLMTemperature:  parseFloat(get("LLM_TEMPERATURE", ""), 1.0),
		OpenAIAPIKey:    get("OPENAI_API_KEY", ""),
		AnthropicAPIKey: get("ANTHROPIC_API_KEY", ""),
		AWSRegion:       get("AWS_REGION", "us-east-1"),

		LCDURL:       get("LCD_URL", "https://secretnetwork-api.lavenderfive.com"),
		ChainID:      get("CHAIN_ID", "secret-4"),
		Mnemonic:     get("MNEMONIC", ""),
		Bech32Prefix: get("BECH32_PREFIX", "secret"),
		HDPath:       get("HD_PATH", "m/44'/529'/0'/0/0"),

		SSCRTAddress:    get("SSCRT_ADDRESS", "secret1k0jntykt7e4g3y88ltc60czgjuqdy4c9e8fzek"),
		SUSDCAddress:    get("SUSDC_ADDRESS", "secret1vkq022x4q8t8kx9de3r84u669l65xnwf2lg3e6"),
		SUSDCCodeHash:   get("SUSDC_CODE_HASH", ""),
		SSCRTViewingKey: get("SSCRT_VIEWING_KEY", ""),
		SUSDCViewingKey: get("SUSDC_VIEWING_KEY", ""),

		RouterAddress:  get("SHADE_ROUTER_ADDRESS", "secret1pjhdug87nxzv0esxasmeyfsucaj98pw4334wyc"),
		RouterCodeHash: get("SHADE_ROUTER_CODE_HASH", ""),
		PairAddress:    get("SHADE_PAIR_ADDRESS", ""),
		PairCodeHash:   get("SHADE_PAIR_CODE_HASH", ""),

		TradeAmount:       get("TRADE_AMOUNT", "400000"),
		TradeGasLimit:     parseUint(get("TRADE_GAS_LIMIT", ""), 3_500_000),
		TradeGasPrice:     parseFloat(get("TRADE_GAS_PRICE", ""), 0.1),
		TradeFeeDenom:     get("TRADE_FEE_DENOM", "uscrt"),
		TradeConfirmDelay: parseDuration(get("TRADE_CONFIRM_DELAY", ""), 8*time.Second),

		LedgerAPIURL:     get("LEDGER_API_URL", "https://api.arweave-storage.xyz/api/v1"),
		LedgerGatewayURL: get("LEDGER_GATEWAY_URL", "https://arweave.net"),
		LedgerAPIKey:     get("LEDGER_API_KEY", ""),
		LedgerAppName:    get("LEDGER_APP_NAME", "scrtagent"),
		LedgerPageSize:   parseInt(get("LEDGER_PAGE_SIZE", ""), 1000),
		LedgerAuditLog:   get("LEDGER_AUDIT_LOG", "false") == "true",

		QuoteURL:   get("QUOTE_URL", "https://api.kanye.rest/"),
		UserID:     get("AGENT_USER_ID", "default"),
		ServerAddr: get("SERVER_ADDR", ":8585"),
	}
}

// Warnings reports settings that degrade features without preventing startup.
func (c Config) Warnings() []string {
	var warnings []string
	if c.SSCRTViewingKey == "" {
		warnings = append(warnings, "SSCRT_VIEWING_KEY is not set; sSCRT balance queries will fail")
	}
	if c.SUSDCViewingKey == "" {
		warnings = append(warnings, "SUSDC_VIEWING_KEY is not set; sUSDC balance queries will fail")
	}
	return warnings
}

// loadFile parses a flat KEY: value YAML document.
func loadFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseFloat(s string, def float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func parseUint(s string, def uint64) uint64 {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil && v > 0 {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return def
}
