package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

const DefaultPath = "data/config.toml"

var ErrInvalidConfig = errors.New("invalid config")

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

type Config struct {
	SolanaRPCURL         string
	RPCRequestsPerSecond float64

	UseJito            bool
	JitoBlockEngineURL string
	JitoPollInterval   time.Duration
	JitoTimeout        time.Duration

	WithdrawToCex bool
	MobileProxies bool
	SwapIPLink    string

	SleepMin time.Duration
	SleepMax time.Duration

	ComputeUnitPrice uint64
	ComputeUnitLimit uint32
	AutoPriorityFee  bool

	UseExternalFeePay  bool
	ExternalFeePayerPK string
	CollectorPubkey    string
	SkimPubkey         string

	ReceiptAPIURL string

	DataDir         string
	WalletStore     string
	WalletStorePath string

	MetricsAddr string
	SentryDSN   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("solana_rpc_url", "")
	v.SetDefault("rpc_requests_per_second", 10)
	v.SetDefault("use_jito", false)
	v.SetDefault("jito_block_engine_url", "https://mainnet.block-engine.jito.wtf")
	v.SetDefault("jito_poll_interval", "5s")
	v.SetDefault("jito_timeout", "100s")
	v.SetDefault("withdraw_to_cex", true)
	v.SetDefault("mobile_proxies", false)
	v.SetDefault("swap_ip_link", "")
	v.SetDefault("claim_sleep_range", []int{4, 10})
	v.SetDefault("compute_unit_price", 0)
	v.SetDefault("compute_unit_limit", 200_000)
	v.SetDefault("auto_priority_fee", false)
	v.SetDefault("use_external_fee_pay", false)
	v.SetDefault("external_fee_payer_pk", "")
	v.SetDefault("collector_pubkey", "")
	v.SetDefault("skim_pubkey", "")
	v.SetDefault("receipt_api_url", "https://api.getgrass.io/claimReceipt")
	v.SetDefault("data_dir", "data")
	v.SetDefault("wallet_store", StoreJSON)
	v.SetDefault("wallet_store_path", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("sentry_dsn", "")
}

// Load reads path (TOML), applying .env and environment overrides. A missing
// file is created with defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return Config{}, fmt.Errorf("create config dir: %w", err)
		}
		defaults := viper.New()
		setDefaults(defaults)
		if err := defaults.SafeWriteConfigAs(path); err != nil {
			return Config{}, fmt.Errorf("write default config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	sleep := v.GetIntSlice("claim_sleep_range")
	if len(sleep) != 2 {
		return Config{}, fmt.Errorf("%w: CLAIM_SLEEP_RANGE must have two values, got %v", ErrInvalidConfig, sleep)
	}
	cfg := Config{
		SolanaRPCURL:         strings.TrimSpace(v.GetString("solana_rpc_url")),
		RPCRequestsPerSecond: v.GetFloat64("rpc_requests_per_second"),
		UseJito:              v.GetBool("use_jito"),
		JitoBlockEngineURL:   strings.TrimSpace(v.GetString("jito_block_engine_url")),
		JitoPollInterval:     v.GetDuration("jito_poll_interval"),
		JitoTimeout:          v.GetDuration("jito_timeout"),
		WithdrawToCex:        v.GetBool("withdraw_to_cex"),
		MobileProxies:        v.GetBool("mobile_proxies"),
		SwapIPLink:           strings.TrimSpace(v.GetString("swap_ip_link")),
		SleepMin:             time.Duration(sleep[0]) * time.Second,
		SleepMax:             time.Duration(sleep[1]) * time.Second,
		ComputeUnitPrice:     v.GetUint64("compute_unit_price"),
		ComputeUnitLimit:     v.GetUint32("compute_unit_limit"),
		AutoPriorityFee:      v.GetBool("auto_priority_fee"),
		UseExternalFeePay:    v.GetBool("use_external_fee_pay"),
		ExternalFeePayerPK:   strings.TrimSpace(v.GetString("external_fee_payer_pk")),
		CollectorPubkey:      strings.TrimSpace(v.GetString("collector_pubkey")),
		SkimPubkey:           strings.TrimSpace(v.GetString("skim_pubkey")),
		ReceiptAPIURL:        strings.TrimSpace(v.GetString("receipt_api_url")),
		DataDir:              strings.TrimSpace(v.GetString("data_dir")),
		WalletStore:          strings.ToLower(strings.TrimSpace(v.GetString("wallet_store"))),
		WalletStorePath:      strings.TrimSpace(v.GetString("wallet_store_path")),
		MetricsAddr:          strings.TrimSpace(v.GetString("metrics_addr")),
		SentryDSN:            strings.TrimSpace(v.GetString("sentry_dsn")),
	}
	if cfg.WalletStorePath == "" {
		name := "database.json"
		if cfg.WalletStore == StoreSQLite {
			name = "database.sqlite"
		}
		cfg.WalletStorePath = filepath.Join(cfg.DataDir, name)
	}
	return cfg, nil
}

// Validate checks the settings every mode depends on.
func (c *Config) Validate() error {
	if c.SolanaRPCURL == "" {
		return fmt.Errorf("%w: SOLANA_RPC_URL is required", ErrInvalidConfig)
	}
	if c.UseJito && c.JitoBlockEngineURL == "" {
		return fmt.Errorf("%w: JITO_BLOCK_ENGINE_URL is required when USE_JITO is set", ErrInvalidConfig)
	}
	if c.MobileProxies && c.SwapIPLink == "" {
		return fmt.Errorf("%w: SWAP_IP_LINK is required when MOBILE_PROXIES is set", ErrInvalidConfig)
	}
	if c.SleepMin < 0 || c.SleepMax < c.SleepMin {
		return fmt.Errorf("%w: CLAIM_SLEEP_RANGE must be [min, max] with 0 <= min <= max", ErrInvalidConfig)
	}
	if c.ComputeUnitLimit == 0 {
		return fmt.Errorf("%w: COMPUTE_UNIT_LIMIT must be positive", ErrInvalidConfig)
	}
	if c.WalletStore != StoreJSON && c.WalletStore != StoreSQLite {
		return fmt.Errorf("%w: WALLET_STORE must be %q or %q", ErrInvalidConfig, StoreJSON, StoreSQLite)
	}
	if c.UseExternalFeePay {
		if _, err := c.ExternalFeePayer(); err != nil {
			return err
		}
	}
	return nil
}

// ExternalFeePayer parses EXTERNAL_FEE_PAYER_PK. It returns a zero keypair
// when external fee payment is disabled.
func (c *Config) ExternalFeePayer() (solana.Keypair, error) {
	if !c.UseExternalFeePay {
		return solana.Keypair{}, nil
	}
	kp, err := solana.ParseKeypairBase58(c.ExternalFeePayerPK)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("%w: EXTERNAL_FEE_PAYER_PK: %v", ErrInvalidConfig, err)
	}
	return kp, nil
}

func (c *Config) Collector() (solana.Pubkey, error) {
	return parseAddress("COLLECTOR_PUBKEY", c.CollectorPubkey)
}

func (c *Config) SkimAddress() (solana.Pubkey, error) {
	return parseAddress("SKIM_PUBKEY", c.SkimPubkey)
}

func parseAddress(key, value string) (solana.Pubkey, error) {
	if value == "" {
		return solana.Pubkey{}, fmt.Errorf("%w: %s is required", ErrInvalidConfig, key)
	}
	pk, err := solana.ParsePubkey(value)
	if err != nil {
		return solana.Pubkey{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return pk, nil
}
