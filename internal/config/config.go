package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pendergraft/casino-deployer/internal/validation"
)

// DefaultFile is the project config file looked up in the working directory
const DefaultFile = "deployer.toml"

// Config holds all configuration for a deployment run
type Config struct {
	Network      NetworkConfig
	Deployer     DeployerConfig
	Artifacts    ArtifactsConfig
	Verification VerificationConfig
	Metrics      MetricsConfig
	Logging      LoggingConfig
	Output       OutputConfig
}

// NetworkConfig holds chain connection settings
type NetworkConfig struct {
	RPCURL string
	// ChainID is detected from the RPC endpoint when zero
	ChainID             int64
	ReceiptPollInterval int // milliseconds
}

// DeployerConfig holds the signing key. It is never read from the config file.
type DeployerConfig struct {
	PrivateKey string
}

// ArtifactsConfig holds build output settings
type ArtifactsConfig struct {
	Dir      string
	Builder  string // "auto", "foundry" or "hardhat"
	Manifest string // optional YAML contract manifest
}

// VerificationConfig holds explorer verification settings
type VerificationConfig struct {
	Enabled           bool
	APIURL            string
	APIKey            string
	SettleDelay       int // seconds
	PollInterval      int // seconds
	MaxPolls          int
	RequestsPerSecond float64
}

// MetricsConfig holds Pushgateway settings
type MetricsConfig struct {
	Enabled        bool
	PushgatewayURL string
	Job            string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// OutputConfig holds summary rendering settings
type OutputConfig struct {
	Format      string // "text", "json" or "yaml"
	SummaryFile string
}

// fileConfig is the TOML layout of deployer.toml
type fileConfig struct {
	Network struct {
		RPCURL              string `toml:"rpc_url"`
		ChainID             int64  `toml:"chain_id"`
		ReceiptPollInterval int    `toml:"receipt_poll_interval_ms"`
	} `toml:"network"`
	Artifacts struct {
		Dir      string `toml:"dir"`
		Builder  string `toml:"builder"`
		Manifest string `toml:"manifest"`
	} `toml:"artifacts"`
	Verification struct {
		Enabled           *bool   `toml:"enabled"`
		APIURL            string  `toml:"api_url"`
		APIKey            string  `toml:"api_key"`
		SettleDelay       *int    `toml:"settle_delay_seconds"`
		PollInterval      int     `toml:"poll_interval_seconds"`
		MaxPolls          int     `toml:"max_polls"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
	} `toml:"verification"`
	Metrics struct {
		Enabled        *bool  `toml:"enabled"`
		PushgatewayURL string `toml:"pushgateway_url"`
		Job            string `toml:"job"`
	} `toml:"metrics"`
	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"logging"`
	Output struct {
		Format      string `toml:"format"`
		SummaryFile string `toml:"summary_file"`
	} `toml:"output"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Network: NetworkConfig{
			RPCURL:              "http://127.0.0.1:8545",
			ReceiptPollInterval: 2000,
		},
		Artifacts: ArtifactsConfig{
			Dir:     ".",
			Builder: "auto",
		},
		Verification: VerificationConfig{
			Enabled:           true,
			APIURL:            "https://api.etherscan.io/v2/api",
			SettleDelay:       30,
			PollInterval:      5,
			MaxPolls:          12,
			RequestsPerSecond: 5,
		},
		Metrics: MetricsConfig{
			Job: "casino-deployer",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the project file at path
// (skipped when empty or missing) and environment variables, in that order.
func Load(path string) (*Config, error) {
	return LoadWithGlobal("", path)
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	md, err := toml.Decode(string(data), &fc)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parsing %s: unknown keys %v", path, undecoded)
	}

	setString(&cfg.Network.RPCURL, fc.Network.RPCURL)
	if fc.Network.ChainID != 0 {
		cfg.Network.ChainID = fc.Network.ChainID
	}
	setInt(&cfg.Network.ReceiptPollInterval, fc.Network.ReceiptPollInterval)

	setString(&cfg.Artifacts.Dir, fc.Artifacts.Dir)
	setString(&cfg.Artifacts.Builder, fc.Artifacts.Builder)
	setString(&cfg.Artifacts.Manifest, fc.Artifacts.Manifest)

	if fc.Verification.Enabled != nil {
		cfg.Verification.Enabled = *fc.Verification.Enabled
	}
	setString(&cfg.Verification.APIURL, fc.Verification.APIURL)
	setString(&cfg.Verification.APIKey, fc.Verification.APIKey)
	if fc.Verification.SettleDelay != nil {
		cfg.Verification.SettleDelay = *fc.Verification.SettleDelay
	}
	setInt(&cfg.Verification.PollInterval, fc.Verification.PollInterval)
	setInt(&cfg.Verification.MaxPolls, fc.Verification.MaxPolls)
	if fc.Verification.RequestsPerSecond > 0 {
		cfg.Verification.RequestsPerSecond = fc.Verification.RequestsPerSecond
	}

	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}
	setString(&cfg.Metrics.PushgatewayURL, fc.Metrics.PushgatewayURL)
	setString(&cfg.Metrics.Job, fc.Metrics.Job)

	setString(&cfg.Logging.Level, fc.Logging.Level)
	setString(&cfg.Logging.Format, fc.Logging.Format)

	setString(&cfg.Output.Format, fc.Output.Format)
	setString(&cfg.Output.SummaryFile, fc.Output.SummaryFile)

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Network.RPCURL = getEnv("RPC_URL", cfg.Network.RPCURL)
	cfg.Network.ChainID = getEnvInt64("CHAIN_ID", cfg.Network.ChainID)
	cfg.Network.ReceiptPollInterval = getEnvInt("RECEIPT_POLL_INTERVAL_MS", cfg.Network.ReceiptPollInterval)

	cfg.Deployer.PrivateKey = getEnv("DEPLOYER_PRIVATE_KEY", getEnv("PRIVATE_KEY", cfg.Deployer.PrivateKey))

	cfg.Artifacts.Dir = getEnv("ARTIFACTS_DIR", cfg.Artifacts.Dir)
	cfg.Artifacts.Builder = getEnv("BUILDER", cfg.Artifacts.Builder)
	cfg.Artifacts.Manifest = getEnv("MANIFEST", cfg.Artifacts.Manifest)

	cfg.Verification.Enabled = getEnvBool("VERIFY_ENABLED", cfg.Verification.Enabled)
	cfg.Verification.APIURL = getEnv("ETHERSCAN_API_URL", cfg.Verification.APIURL)
	cfg.Verification.APIKey = getEnv("ETHERSCAN_API_KEY", cfg.Verification.APIKey)
	cfg.Verification.SettleDelay = getEnvInt("VERIFY_SETTLE_DELAY_SECONDS", cfg.Verification.SettleDelay)
	cfg.Verification.PollInterval = getEnvInt("VERIFY_POLL_INTERVAL_SECONDS", cfg.Verification.PollInterval)
	cfg.Verification.MaxPolls = getEnvInt("VERIFY_MAX_POLLS", cfg.Verification.MaxPolls)
	cfg.Verification.RequestsPerSecond = getEnvFloat("ETHERSCAN_RPS", cfg.Verification.RequestsPerSecond)

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.PushgatewayURL = getEnv("PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)
	cfg.Metrics.Job = getEnv("METRICS_JOB", cfg.Metrics.Job)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Output.Format = getEnv("OUTPUT_FORMAT", cfg.Output.Format)
	cfg.Output.SummaryFile = getEnv("SUMMARY_FILE", cfg.Output.SummaryFile)
}

// Validate checks the settings a run depends on
func (c *Config) Validate() error {
	if err := validation.ValidateEndpoint(c.Network.RPCURL, "http", "https", "ws", "wss"); err != nil {
		return fmt.Errorf("rpc url: %w", err)
	}
	if c.Network.ChainID < 0 {
		return errors.New("chain id must not be negative")
	}
	if c.Network.ReceiptPollInterval <= 0 {
		return errors.New("receipt poll interval must be positive")
	}

	switch c.Artifacts.Builder {
	case "auto", "foundry", "hardhat":
	default:
		return fmt.Errorf("unknown builder %q (supported: auto, foundry, hardhat)", c.Artifacts.Builder)
	}

	if c.Verification.SettleDelay < 0 {
		return errors.New("verification settle delay must not be negative")
	}
	if c.Verification.Enabled && c.Verification.APIKey != "" {
		if err := validation.ValidateEndpoint(c.Verification.APIURL); err != nil {
			return fmt.Errorf("verification api url: %w", err)
		}
	}

	if c.Metrics.Enabled && c.Metrics.PushgatewayURL != "" {
		if err := validation.ValidateEndpoint(c.Metrics.PushgatewayURL); err != nil {
			return fmt.Errorf("pushgateway url: %w", err)
		}
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (supported: text, json)", c.Logging.Format)
	}

	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (supported: text, json, yaml)", c.Output.Format)
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
