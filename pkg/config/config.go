package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"faucetui/pkg/models"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const ConfigFileName = ".faucetui.json"

// Environment overrides.
const (
	EnvAPIURL         = "FAUCET_API_URL"
	EnvTimeoutSeconds = "FAUCET_TIMEOUT_SECONDS"
	EnvLogLevel       = "FAUCET_LOG_LEVEL"
	EnvLogFile        = "FAUCET_LOG_FILE"
	EnvSuiCooldown    = "FAUCET_SUI_COOLDOWN_SECONDS"
	EnvSolanaCooldown = "FAUCET_SOLANA_COOLDOWN_SECONDS"
)

// NetworkConfig describes one network of a chain.
type NetworkConfig struct {
	ID          models.Network `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	RPCURL      string         `json:"rpc_url,omitempty"`
	ExplorerURL string         `json:"explorer_url,omitempty"` // fmt pattern, %s is the address
}

// AmountOption is one selectable request amount.
type AmountOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// EndpointConfig holds the service paths used for a chain.
type EndpointConfig struct {
	Airdrop        string `json:"airdrop"`
	RecentRequests string `json:"recent_requests"`
	Analytics      string `json:"analytics"`
}

// ChainConfig holds configuration for one faucet page.
type ChainConfig struct {
	Chain           models.Chain    `json:"chain"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	CooldownSeconds int             `json:"cooldown_seconds"`
	Networks        []NetworkConfig `json:"networks"`
	Amounts         []AmountOption  `json:"amounts"`
	DefaultAmount   string          `json:"default_amount"`
	Endpoints       EndpointConfig  `json:"endpoints"`
	DocsURL         string          `json:"docs_url,omitempty"`
}

// GlobalConfig holds application-wide settings.
type GlobalConfig struct {
	APIURL              string `json:"api_url"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	CacheTTLSeconds     int    `json:"cache_ttl_seconds"`
	LogLevel            string `json:"log_level"`
	LogFile             string `json:"log_file,omitempty"`
}

// Config is the full file layout.
type Config struct {
	Global          GlobalConfig   `json:"global"`
	Chains          []ChainConfig  `json:"chains"`
	SelectedChain   models.Chain   `json:"selected_chain,omitempty"`
	SelectedNetwork models.Network `json:"selected_network,omitempty"`
}

// MultiNetwork reports whether the page offers a network selector.
func (c ChainConfig) MultiNetwork() bool {
	return len(c.Networks) > 1
}

// Cooldown returns the reset duration applied after a successful request.
func (c ChainConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// DefaultNetwork returns the first configured network.
func (c ChainConfig) DefaultNetwork() models.Network {
	if len(c.Networks) == 0 {
		return ""
	}
	return c.Networks[0].ID
}

// Network looks up a network by id.
func (c ChainConfig) Network(id models.Network) (NetworkConfig, bool) {
	for _, n := range c.Networks {
		if n.ID == id {
			return n, true
		}
	}
	return NetworkConfig{}, false
}

// ExplorerAddressURL returns the explorer link for addr on the given network.
func (c ChainConfig) ExplorerAddressURL(addr string, network models.Network) string {
	n, ok := c.Network(network)
	if !ok || n.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf(n.ExplorerURL, addr)
}

// Chain looks up a chain by id.
func (c Config) Chain(id models.Chain) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.Chain == id {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// SelectedIndex returns the index of the selected chain, defaulting to 0.
func (c Config) SelectedIndex() int {
	for i, ch := range c.Chains {
		if ch.Chain == c.SelectedChain {
			return i
		}
	}
	return 0
}

// DefaultTimeoutSeconds bounds every call to the faucet service unless the
// configuration sets a positive value.
const DefaultTimeoutSeconds = 10

// Timeout returns the per-call timeout. Non-positive settings fall back to
// DefaultTimeoutSeconds.
func (g GlobalConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// DefaultGlobal returns the built-in global settings.
func DefaultGlobal() GlobalConfig {
	return GlobalConfig{
		APIURL:              "http://localhost:3000",
		TimeoutSeconds:      DefaultTimeoutSeconds,
		PollIntervalSeconds: 30,
		CacheTTLSeconds:     30,
		LogLevel:            "info",
	}
}

// DefaultChains returns the built-in Sui and Solana pages.
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{
			Chain: models.ChainSui,
			Name:  "Sui",
			// Published policy is one request per address every 20 minutes.
			CooldownSeconds: 1200,
			Symbol:          "SUI",
			Networks: []NetworkConfig{{
				ID:          models.NetworkTestnet,
				Name:        "Testnet",
				Description: "Sui test network",
				RPCURL:      "https://fullnode.testnet.sui.io:443",
				ExplorerURL: "https://suiscan.xyz/testnet/account/%s",
			}},
			Amounts:       []AmountOption{{Value: "10", Label: "10 SUI", Description: "Fixed amount"}},
			DefaultAmount: "10",
			Endpoints: EndpointConfig{
				Airdrop:        "/airdrop",
				RecentRequests: "/recent-requests",
				Analytics:      "/analytics",
			},
			DocsURL: "https://docs.sui.io",
		},
		{
			Chain:           models.ChainSolana,
			Name:            "Solana",
			Symbol:          "SOL",
			CooldownSeconds: 1800,
			Networks: []NetworkConfig{
				{
					ID:          models.NetworkDevnet,
					Name:        "Devnet",
					Description: "Development network for testing",
					RPCURL:      "https://api.devnet.solana.com",
					ExplorerURL: "https://explorer.solana.com/address/%s?cluster=devnet",
				},
				{
					ID:          models.NetworkTestnet,
					Name:        "Testnet",
					Description: "Stable testing environment",
					RPCURL:      "https://api.testnet.solana.com",
					ExplorerURL: "https://explorer.solana.com/address/%s?cluster=testnet",
				},
			},
			Amounts: []AmountOption{
				{Value: "0.5", Label: "0.5 SOL", Description: "Basic testing"},
				{Value: "1", Label: "1.0 SOL", Description: "Standard amount"},
				{Value: "2", Label: "2.0 SOL", Description: "Heavy testing"},
				{Value: "5", Label: "5.0 SOL", Description: "Development work"},
			},
			DefaultAmount: "1",
			Endpoints: EndpointConfig{
				Airdrop:        "/solana/airdrop",
				RecentRequests: "/solana/recent-requests",
				Analytics:      "/solana/analytics",
			},
			DocsURL: "https://docs.solana.com",
		},
	}
}

// Default returns a complete configuration.
func Default() Config {
	return Config{
		Global:        DefaultGlobal(),
		Chains:        DefaultChains(),
		SelectedChain: models.ChainSui,
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

// LoadConfigFromFile loads path; a missing file yields the defaults.
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

// LoadConfig decodes a config and fills every unset field from the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg struct {
		Global          *GlobalConfig  `json:"global"`
		APIURL          string         `json:"api_url"` // Legacy, flat layout
		Chains          []ChainConfig  `json:"chains"`
		SelectedChain   models.Chain   `json:"selected_chain"`
		SelectedNetwork models.Network `json:"selected_network"`
	}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	out := Config{
		Global:          DefaultGlobal(),
		SelectedChain:   cfg.SelectedChain,
		SelectedNetwork: cfg.SelectedNetwork,
	}
	if cfg.Global != nil {
		out.Global = mergeGlobal(out.Global, *cfg.Global)
	}
	if cfg.APIURL != "" && (cfg.Global == nil || cfg.Global.APIURL == "") {
		out.Global.APIURL = cfg.APIURL
	}

	defaults := DefaultChains()
	if len(cfg.Chains) == 0 {
		out.Chains = defaults
	} else {
		for _, c := range cfg.Chains {
			for _, d := range defaults {
				if d.Chain == c.Chain {
					c = mergeChain(d, c)
					break
				}
			}
			out.Chains = append(out.Chains, c)
		}
	}
	if out.SelectedChain == "" && len(out.Chains) > 0 {
		out.SelectedChain = out.Chains[0].Chain
	}
	return out, nil
}

func mergeGlobal(base, over GlobalConfig) GlobalConfig {
	if over.APIURL != "" {
		base.APIURL = over.APIURL
	}
	if over.TimeoutSeconds > 0 {
		base.TimeoutSeconds = over.TimeoutSeconds
	}
	if over.PollIntervalSeconds > 0 {
		base.PollIntervalSeconds = over.PollIntervalSeconds
	}
	if over.CacheTTLSeconds > 0 {
		base.CacheTTLSeconds = over.CacheTTLSeconds
	}
	if over.LogLevel != "" {
		base.LogLevel = over.LogLevel
	}
	if over.LogFile != "" {
		base.LogFile = over.LogFile
	}
	return base
}

func mergeChain(base, over ChainConfig) ChainConfig {
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.Symbol != "" {
		base.Symbol = over.Symbol
	}
	if over.CooldownSeconds > 0 {
		base.CooldownSeconds = over.CooldownSeconds
	}
	if len(over.Networks) > 0 {
		base.Networks = over.Networks
	}
	if len(over.Amounts) > 0 {
		base.Amounts = over.Amounts
		base.DefaultAmount = over.Amounts[0].Value
	}
	if over.DefaultAmount != "" {
		base.DefaultAmount = over.DefaultAmount
	}
	if over.Endpoints.Airdrop != "" {
		base.Endpoints.Airdrop = over.Endpoints.Airdrop
	}
	if over.Endpoints.RecentRequests != "" {
		base.Endpoints.RecentRequests = over.Endpoints.RecentRequests
	}
	if over.Endpoints.Analytics != "" {
		base.Endpoints.Analytics = over.Endpoints.Analytics
	}
	if over.DocsURL != "" {
		base.DocsURL = over.DocsURL
	}
	return base
}

// LoadEnv reads .env files into the process environment. Missing files are
// not an error; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvAPIURL); ok && v != "" {
		cfg.Global.APIURL = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.Global.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok && v != "" {
		cfg.Global.LogFile = v
	}
	if v, ok := os.LookupEnv(EnvTimeoutSeconds); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvTimeoutSeconds)
		}
		cfg.Global.TimeoutSeconds = n
	}
	overrides := map[models.Chain]string{
		models.ChainSui:    EnvSuiCooldown,
		models.ChainSolana: EnvSolanaCooldown,
	}
	for i := range cfg.Chains {
		key, ok := overrides[cfg.Chains[i].Chain]
		if !ok {
			continue
		}
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		cfg.Chains[i].CooldownSeconds = n
	}
	return nil
}

// Validate checks the structure of cfg and returns every problem found.
func Validate(cfg Config) []string {
	var problems []string
	if strings.TrimSpace(cfg.Global.APIURL) == "" {
		problems = append(problems, "api_url is empty")
	}
	if cfg.Global.TimeoutSeconds <= 0 {
		problems = append(problems, "timeout_seconds must be positive")
	}
	if len(cfg.Chains) == 0 {
		problems = append(problems, "configuration must have at least one chain")
	}
	seen := make(map[models.Chain]bool)
	for i, c := range cfg.Chains {
		if c.Chain != models.ChainSui && c.Chain != models.ChainSolana {
			problems = append(problems, fmt.Sprintf("chain at index %d has unknown id %q", i, c.Chain))
			continue
		}
		if seen[c.Chain] {
			problems = append(problems, fmt.Sprintf("chain %s is configured twice", c.Chain))
		}
		seen[c.Chain] = true
		if c.CooldownSeconds < 0 {
			problems = append(problems, fmt.Sprintf("chain %s has a negative cooldown", c.Chain))
		}
		if len(c.Networks) == 0 {
			problems = append(problems, fmt.Sprintf("chain %s has no networks", c.Chain))
		}
		if len(c.Amounts) == 0 {
			problems = append(problems, fmt.Sprintf("chain %s has no amounts", c.Chain))
		}
		for _, a := range c.Amounts {
			if v, err := strconv.ParseFloat(a.Value, 64); err != nil || v <= 0 {
				problems = append(problems, fmt.Sprintf("chain %s has invalid amount %q", c.Chain, a.Value))
			}
		}
	}
	return problems
}

// SaveConfig validates cfg and writes it atomically, keeping a timestamped
// backup of the previous file.
func SaveConfig(cfg Config, path string) error {
	if problems := Validate(cfg); len(problems) > 0 {
		return errors.Newf("validation failed: %s", strings.Join(problems, "; "))
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "failed to read existing config for backup")
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return errors.Wrap(err, "failed to write backup config")
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return errors.New("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
