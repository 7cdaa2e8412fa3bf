// Package config loads process configuration from the environment,
// following the same env-var-struct idiom used across the example corpus:
// a typed Config populated by small getEnv* helpers, with an optional
// .env file loaded first for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the engine needs at
// startup. It is constructed once in cmd/lpengine/main.go and passed down
// explicitly to every component constructor — no ambient package-level
// globals.
type Config struct {
	HTTPAddr string

	RPCEndpoint  string
	JitoEndpoint string
	RPCRateLimit int

	RedisURL string

	TreasuryAddress string
	TipAccount      string

	OracleTimeout     time.Duration
	SwapRouterTimeout time.Duration
	VenueRESTTimeout  time.Duration
	BundlePollTimeout time.Duration

	OracleCacheTTL time.Duration
	PoolCacheTTL   time.Duration
	PositionCacheTTL time.Duration

	MonitorTickInterval time.Duration

	ProtocolFeeBps int

	ChatAPIBase string

	// DevSignerKeys holds base58 private keys for custody.LocalSigner in
	// dev/staging deployments only; production deployments are expected to
	// supply their own custody.Oracle implementation instead of reading
	// keys from the environment at all.
	DevSignerKeys []string

	LogLevel string
	DevMode  bool
}

// Load reads a .env file if present (ignored if absent) then builds Config
// from the process environment, applying the spec's stated defaults for
// every timeout.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr: getEnv("LP_HTTP_ADDR", ":8080"),

		RPCEndpoint:  getEnv("LP_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		JitoEndpoint: getEnv("LP_JITO_ENDPOINT", "https://mainnet.block-engine.jito.wtf"),
		RPCRateLimit: getEnvInt("LP_RPC_RATE_LIMIT", 10),

		RedisURL: getEnv("LP_REDIS_URL", "redis://localhost:6379/0"),

		TreasuryAddress: getEnv("LP_TREASURY_ADDRESS", ""),
		TipAccount:      getEnv("LP_TIP_ACCOUNT", ""),

		OracleTimeout:     getEnvDuration("LP_ORACLE_TIMEOUT", 5*time.Second),
		SwapRouterTimeout: getEnvDuration("LP_SWAP_ROUTER_TIMEOUT", 15*time.Second),
		VenueRESTTimeout:  getEnvDuration("LP_VENUE_TIMEOUT", 30*time.Second),
		BundlePollTimeout: getEnvDuration("LP_BUNDLE_POLL_TIMEOUT", 60*time.Second),

		OracleCacheTTL:   getEnvDuration("LP_ORACLE_CACHE_TTL", 10*time.Second),
		PoolCacheTTL:     getEnvDuration("LP_POOL_CACHE_TTL", 60*time.Second),
		PositionCacheTTL: getEnvDuration("LP_POSITION_CACHE_TTL", 30*time.Second),

		MonitorTickInterval: getEnvDuration("LP_MONITOR_TICK", 5*time.Minute),

		ProtocolFeeBps: getEnvInt("LP_PROTOCOL_FEE_BPS", 100),

		ChatAPIBase: getEnv("LP_CHAT_API_BASE", ""),

		DevSignerKeys: getEnvList("LP_DEV_SIGNER_KEYS"),

		LogLevel: getEnv("LP_LOG_LEVEL", "info"),
		DevMode:  getEnvBool("LP_DEV_MODE", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getEnvList splits a comma-separated env var, trimming whitespace and
// dropping empty entries; an unset or empty var yields nil.
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
