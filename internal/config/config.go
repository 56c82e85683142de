// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Venues    VenuesConfig    `mapstructure:"venues"`
	Swap      SwapConfig      `mapstructure:"swap"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	PrivateKey     string        `mapstructure:"private_key"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// VenuesConfig holds the on-chain addresses of every liquidity venue.
type VenuesConfig struct {
	VaultAddress        string `mapstructure:"vault_address"`
	ZapperAddress       string `mapstructure:"zapper_address"`
	CurvePoolAddress     string `mapstructure:"curve_pool_address"`
	CurveOETHPoolAddress string `mapstructure:"curve_oeth_pool_address"`
	CurveRouterAddress   string `mapstructure:"curve_router_address"`
	UniswapV3Router     string `mapstructure:"uniswap_v3_router"`
	UniswapV3Quoter     string `mapstructure:"uniswap_v3_quoter"`
	UniswapV2Router     string `mapstructure:"uniswap_v2_router"`
	SushiswapRouter     string `mapstructure:"sushiswap_router"`
	ReserveAssets       []string `mapstructure:"reserve_assets"`
	UniswapV3StableFee  int    `mapstructure:"uniswap_v3_stable_fee"`
	UniswapV3DefaultFee int    `mapstructure:"uniswap_v3_default_fee"`
	SwapDeadline        time.Duration `mapstructure:"swap_deadline"`
}

// VaultAddressHex returns the vault address as common.Address.
func (c *VenuesConfig) VaultAddressHex() common.Address {
	return common.HexToAddress(c.VaultAddress)
}

// ZapperAddressHex returns the zapper address as common.Address.
func (c *VenuesConfig) ZapperAddressHex() common.Address {
	return common.HexToAddress(c.ZapperAddress)
}

// CurvePoolAddressHex returns the curve pool address as common.Address.
func (c *VenuesConfig) CurvePoolAddressHex() common.Address {
	return common.HexToAddress(c.CurvePoolAddress)
}

// CurveOETHPoolAddressHex returns the curve OETH pool address as common.Address.
func (c *VenuesConfig) CurveOETHPoolAddressHex() common.Address {
	return common.HexToAddress(c.CurveOETHPoolAddress)
}

// CurveRouterAddressHex returns the curve router address as common.Address.
func (c *VenuesConfig) CurveRouterAddressHex() common.Address {
	return common.HexToAddress(c.CurveRouterAddress)
}

// SwapConfig holds estimation and execution tuning.
type SwapConfig struct {
	// Protocol token this deployment routes for: "OUSD" or "OETH".
	Protocol string `mapstructure:"protocol"`

	DebounceMs           int     `mapstructure:"debounce_ms"`
	CoinChangeDebounceMs int     `mapstructure:"coin_change_debounce_ms"`
	DefaultSlippagePct   float64 `mapstructure:"default_slippage_pct"`
	PriceCeiling         float64 `mapstructure:"price_ceiling"`

	// Gas limit buffers applied at execution time.
	GasBufferPct      float64 `mapstructure:"gas_buffer_pct"`
	VaultMintGasFloor uint64  `mapstructure:"vault_mint_gas_floor"`

	// Fallback gas constants used when an allowance or balance shortfall
	// makes on-chain estimation impossible. Historical worst-case
	// observations; tunable, not derived.
	FallbackGas FallbackGasConfig `mapstructure:"fallback_gas"`
}

// FallbackGasConfig holds per-venue conservative gas estimates.
type FallbackGasConfig struct {
	VaultMint      uint64 `mapstructure:"vault_mint"`
	VaultMintLarge uint64 `mapstructure:"vault_mint_large"`
	VaultRedeem    uint64 `mapstructure:"vault_redeem"`
	Zapper         uint64 `mapstructure:"zapper"`
	Curve          uint64 `mapstructure:"curve"`
	UniswapV3      uint64 `mapstructure:"uniswap_v3"`
	UniswapV2      uint64 `mapstructure:"uniswap_v2"`
	Sushiswap      uint64 `mapstructure:"sushiswap"`
	Approve        uint64 `mapstructure:"approve"`

	// Whole-token threshold above which the large vault mint constant
	// applies (a large mint can trigger a rebase and allocation).
	VaultMintLargeThreshold float64 `mapstructure:"vault_mint_large_threshold"`
}

// DefaultSlippage returns the default slippage tolerance as a decimal.
func (c SwapConfig) DefaultSlippage() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultSlippagePct)
}

// PriceCeilingDecimal returns the sanity ceiling as a decimal.
func (c *SwapConfig) PriceCeilingDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.PriceCeiling)
}

// SnapshotConfig holds allowance/balance refresh settings.
type SnapshotConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	SubscribeEvents bool          `mapstructure:"subscribe_events"`
}

// PricingConfig holds ETH/USD price source configuration.
type PricingConfig struct {
	ChainlinkFeedAddress string        `mapstructure:"chainlink_feed_address"`
	CoinGeckoURL         string        `mapstructure:"coingecko_url"`
	BinanceWSURL         string        `mapstructure:"binance_ws_url"`
	StreamEnabled        bool          `mapstructure:"stream_enabled"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl"`
	StaleTimeout         time.Duration `mapstructure:"stale_timeout"`
	RequestsPerMinute    int           `mapstructure:"requests_per_minute"`
}

// ChainlinkFeedAddressHex returns the feed address as common.Address.
func (c *PricingConfig) ChainlinkFeedAddressHex() common.Address {
	return common.HexToAddress(c.ChainlinkFeedAddress)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SWAP")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "SWAP_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SWAP_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SWAP_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("ethereum.http_url", "SWAP_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.websocket_url", "SWAP_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.chain_id", "SWAP_ETH_CHAIN_ID", "ETH_CHAIN_ID")
	v.BindEnv("ethereum.private_key", "SWAP_PRIVATE_KEY", "PRIVATE_KEY")

	v.BindEnv("venues.vault_address", "SWAP_VAULT_ADDRESS")
	v.BindEnv("venues.zapper_address", "SWAP_ZAPPER_ADDRESS")
	v.BindEnv("venues.curve_pool_address", "SWAP_CURVE_POOL")
	v.BindEnv("venues.curve_router_address", "SWAP_CURVE_ROUTER")
	v.BindEnv("venues.uniswap_v3_router", "SWAP_UNIV3_ROUTER")
	v.BindEnv("venues.uniswap_v3_quoter", "SWAP_UNIV3_QUOTER")
	v.BindEnv("venues.uniswap_v2_router", "SWAP_UNIV2_ROUTER")
	v.BindEnv("venues.sushiswap_router", "SWAP_SUSHI_ROUTER")

	v.BindEnv("pricing.chainlink_feed_address", "SWAP_CHAINLINK_FEED")
	v.BindEnv("pricing.coingecko_url", "SWAP_COINGECKO_URL")
	v.BindEnv("pricing.binance_ws_url", "SWAP_BINANCE_WS_URL")

	v.BindEnv("telemetry.enabled", "SWAP_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SWAP_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SWAP_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "swap-router")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	// Mainnet venue addresses
	v.SetDefault("venues.vault_address", "0xE75D77B1865Ae93c7eaa3040B038D7aA7BC02F70")
	v.SetDefault("venues.zapper_address", "0x9858e47BCbBe6fBAC040519B02d7cd4B2C470C66")
	v.SetDefault("venues.curve_pool_address", "0x87650D7bbfC3A9F10587d7778206671719d9910D")
	v.SetDefault("venues.curve_oeth_pool_address", "0x94B17476A93b3262d87B9a326965D1E91f9c13E7")
	v.SetDefault("venues.curve_router_address", "0x99a58482BD75cbab83b27EC03CA68fF489b5788f")
	v.SetDefault("venues.uniswap_v3_router", "0xE592427A0AEce92De3Edee1F18E0157C05861564")
	v.SetDefault("venues.uniswap_v3_quoter", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("venues.uniswap_v2_router", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	v.SetDefault("venues.sushiswap_router", "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
	v.SetDefault("venues.reserve_assets", []string{"DAI", "USDC", "USDT"})
	v.SetDefault("venues.uniswap_v3_stable_fee", 500)   // 0.05%
	v.SetDefault("venues.uniswap_v3_default_fee", 3000) // 0.30%
	v.SetDefault("venues.swap_deadline", "2m")

	v.SetDefault("swap.protocol", "OUSD")
	v.SetDefault("swap.debounce_ms", 700)
	v.SetDefault("swap.coin_change_debounce_ms", 0)
	v.SetDefault("swap.default_slippage_pct", 0.25)
	v.SetDefault("swap.price_ceiling", 1.25)
	v.SetDefault("swap.gas_buffer_pct", 10)
	v.SetDefault("swap.vault_mint_gas_floor", 20000)

	v.SetDefault("swap.fallback_gas.vault_mint", 220000)
	v.SetDefault("swap.fallback_gas.vault_mint_large", 2900000)
	v.SetDefault("swap.fallback_gas.vault_redeem", 1500000)
	v.SetDefault("swap.fallback_gas.zapper", 505000)
	v.SetDefault("swap.fallback_gas.curve", 350000)
	v.SetDefault("swap.fallback_gas.uniswap_v3", 165000)
	v.SetDefault("swap.fallback_gas.uniswap_v2", 175000)
	v.SetDefault("swap.fallback_gas.sushiswap", 175000)
	v.SetDefault("swap.fallback_gas.approve", 52000)
	v.SetDefault("swap.fallback_gas.vault_mint_large_threshold", 25000)

	v.SetDefault("snapshot.poll_interval", "30s")
	v.SetDefault("snapshot.subscribe_events", true)

	// Chainlink ETH/USD aggregator on mainnet
	v.SetDefault("pricing.chainlink_feed_address", "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")
	v.SetDefault("pricing.coingecko_url", "https://api.coingecko.com")
	v.SetDefault("pricing.binance_ws_url", "wss://stream.binance.com:9443")
	v.SetDefault("pricing.stream_enabled", false)
	v.SetDefault("pricing.cache_ttl", "30s")
	v.SetDefault("pricing.stale_timeout", "5m")
	v.SetDefault("pricing.requests_per_minute", 30)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swap-router")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	for name, addr := range map[string]string{
		"venues.vault_address":      c.Venues.VaultAddress,
		"venues.zapper_address":     c.Venues.ZapperAddress,
		"venues.curve_pool_address": c.Venues.CurvePoolAddress,
		"venues.uniswap_v3_router":  c.Venues.UniswapV3Router,
		"venues.uniswap_v3_quoter":  c.Venues.UniswapV3Quoter,
		"venues.uniswap_v2_router":  c.Venues.UniswapV2Router,
		"venues.sushiswap_router":   c.Venues.SushiswapRouter,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s: %s", name, addr)
		}
	}
	if c.Swap.PriceCeiling <= 0 {
		return fmt.Errorf("swap.price_ceiling must be positive")
	}
	if c.Swap.DebounceMs < 0 || c.Swap.CoinChangeDebounceMs < 0 {
		return fmt.Errorf("debounce delays cannot be negative")
	}
	return nil
}
