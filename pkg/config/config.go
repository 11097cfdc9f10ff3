package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const ConfigFileName = ".agentterm.json"

// Environment variables that override the file.
const (
	EnvBackendURL    = "AGENT_API_URL"
	EnvWalletAddress = "AGENT_WALLET_ADDRESS"
	EnvWalletKey     = "AGENT_WALLET_KEY"
	EnvRPCURLs       = "AGENT_RPC_URLS"
	EnvChainID       = "AGENT_CHAIN_ID"
	EnvLogFile       = "AGENT_LOG_FILE"
	EnvMirrorPort    = "AGENT_MIRROR_PORT"
)

const DefaultBackendURL = "http://localhost:8000"

// ChainConfig holds configuration for the EVM chain the agent trades on.
type ChainConfig struct {
	Name        string   `json:"name"`
	RPCURLs     []string `json:"rpc_urls"`
	Symbol      string   `json:"symbol"`
	ChainID     int64    `json:"chain_id,omitempty"`
	ExplorerURL string   `json:"explorer_url,omitempty"`
}

// Config holds application-wide settings.
type Config struct {
	BackendURL    string      `json:"backend_url"`
	WalletAddress string      `json:"wallet_address,omitempty"`
	PrivateKey    string      `json:"-"`
	Chain         ChainConfig `json:"chain"`

	StableSymbol          string `json:"stable_symbol"`
	FundAmount            string `json:"fund_amount"`
	BalancePollSeconds    int    `json:"balance_poll_seconds"`
	TypewriterIntervalMs  int    `json:"typewriter_interval_ms"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	FiatDecimals          int    `json:"fiat_decimals"`
	TokenDecimals         int    `json:"token_decimals"`
	AutoConnect           bool   `json:"auto_connect"`
	LogFile               string `json:"log_file"`
	MirrorPort            int    `json:"mirror_port,omitempty"`

	// Legacy root-level RPC list, folded into Chain on load.
	RPCURLs []string `json:"rpc_urls,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BackendURL: DefaultBackendURL,
		Chain: ChainConfig{
			Name:        "Base Sepolia",
			RPCURLs:     []string{"https://sepolia.base.org"},
			Symbol:      "ETH",
			ChainID:     84532,
			ExplorerURL: "https://sepolia.basescan.org",
		},
		StableSymbol:          "USDC",
		FundAmount:            "0.01",
		BalancePollSeconds:    3,
		TypewriterIntervalMs:  10,
		RequestTimeoutSeconds: 60,
		FiatDecimals:          2,
		TokenDecimals:         4,
		AutoConnect:           true,
		LogFile:               "agentterm.log",
	}
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

// LoadConfig decodes a config over the defaults; absent keys keep their
// default value.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := Default()
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}

	// Migration for legacy config
	if len(cfg.RPCURLs) > 0 {
		cfg.Chain.RPCURLs = cfg.RPCURLs
		cfg.RPCURLs = nil
	}
	return cfg, nil
}

// LoadEnv reads .env files into the process environment. Missing files are
// ignored; existing variables are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the AGENT_* variables found by getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvBackendURL)); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(getenv(EnvWalletAddress)); v != "" {
		cfg.WalletAddress = v
	}
	if v := strings.TrimSpace(getenv(EnvWalletKey)); v != "" {
		cfg.PrivateKey = v
	}
	if v := strings.TrimSpace(getenv(EnvRPCURLs)); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		cfg.Chain.RPCURLs = urls
	}
	if v := strings.TrimSpace(getenv(EnvChainID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvChainID, err)
		}
		cfg.Chain.ChainID = id
	}
	if v := strings.TrimSpace(getenv(EnvLogFile)); v != "" {
		cfg.LogFile = v
	}
	if v := strings.TrimSpace(getenv(EnvMirrorPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMirrorPort, err)
		}
		cfg.MirrorPort = port
	}
	return nil
}

// Load reads the file at path, then .env and the environment.
func Load(path string) (Config, error) {
	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate returns every structural problem of cfg.
func (c Config) Validate() []string {
	var problems []string
	if strings.TrimSpace(c.BackendURL) == "" {
		problems = append(problems, "backend_url is empty")
	}
	if strings.TrimSpace(c.Chain.Name) == "" {
		problems = append(problems, "chain has no name")
	}
	if len(c.Chain.RPCURLs) == 0 {
		problems = append(problems, fmt.Sprintf("chain %s has no RPC URLs", c.Chain.Name))
	}
	if strings.TrimSpace(c.Chain.Symbol) == "" {
		problems = append(problems, "chain has no symbol")
	}
	if _, err := c.FundAmountDecimal(); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// FundAmountDecimal parses FundAmount.
func (c Config) FundAmountDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.FundAmount))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("fund_amount %q is not a positive number", c.FundAmount)
	}
	return d, nil
}

func (c Config) BalancePollInterval() time.Duration {
	if c.BalancePollSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.BalancePollSeconds) * time.Second
}

func (c Config) TypewriterInterval() time.Duration {
	if c.TypewriterIntervalMs <= 0 {
		return 10 * time.Millisecond
	}
	return time.Duration(c.TypewriterIntervalMs) * time.Millisecond
}

func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ExplorerTxURL links a transaction hash on the configured explorer.
func (c Config) ExplorerTxURL(hash string) string {
	if c.Chain.ExplorerURL == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(c.Chain.ExplorerURL, "/") + "/tx/" + hash
}

func SaveConfig(cfg Config, path string) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
	}

	cfg.RPCURLs = nil
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) (string, error) {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return "", err
	}
	return lastBackup, os.WriteFile(configPath, data, 0600)
}
