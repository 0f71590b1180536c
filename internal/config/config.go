// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	FeeBps             uint64 `mapstructure:"fee_bps"`
	LiquidityShareBps  uint64 `mapstructure:"liquidity_share_bps"`
	CreatorShareBps    uint64 `mapstructure:"creator_share_bps"`
	LiquiditySlippage  uint64 `mapstructure:"liquidity_slippage_bps"`
	RouterDeadlineSecs int    `mapstructure:"router_deadline_secs"`
	LPLockDays         int    `mapstructure:"lp_lock_days"`
	PoolFeeBps         uint64 `mapstructure:"pool_fee_bps"`
	EventBufferSize    int    `mapstructure:"event_buffer_size"`
	PostgresURL        string `mapstructure:"postgres_url"`
	MetricsAddr        string `mapstructure:"metrics_addr"`
	DebugLogging       bool   `mapstructure:"debug_logging"`
	LogFile            string `mapstructure:"log_file"`
}

const (
	DefaultFeeBps             = 100 // 1% platform fee on curve trades
	DefaultLiquidityShareBps  = 7000
	DefaultCreatorShareBps    = 2000
	DefaultLiquiditySlippage  = 500 // mins at 95% of intended amounts
	DefaultRouterDeadlineSecs = 300 // 5 minutes
	DefaultLPLockDays         = 180
	DefaultPoolFeeBps         = 25 // 0.25% pool swap fee
	DefaultEventBufferSize    = 1024
	DefaultLogFile            = "logs/launchpad.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"fee_bps":                DefaultFeeBps,
		"liquidity_share_bps":    DefaultLiquidityShareBps,
		"creator_share_bps":      DefaultCreatorShareBps,
		"liquidity_slippage_bps": DefaultLiquiditySlippage,
		"router_deadline_secs":   DefaultRouterDeadlineSecs,
		"lp_lock_days":           DefaultLPLockDays,
		"pool_fee_bps":           DefaultPoolFeeBps,
		"event_buffer_size":      DefaultEventBufferSize,
		"log_file":               DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.FeeBps >= 10_000 {
		return errors.New("fee_bps must be below 10000")
	}
	if cfg.LiquidityShareBps == 0 {
		return errors.New("liquidity_share_bps must be positive")
	}
	if cfg.LiquidityShareBps+cfg.CreatorShareBps > 10_000 {
		return errors.New("liquidity_share_bps + creator_share_bps exceed 10000")
	}
	if cfg.LiquiditySlippage >= 10_000 {
		return errors.New("liquidity_slippage_bps must be below 10000")
	}
	if cfg.RouterDeadlineSecs <= 0 {
		return errors.New("invalid router_deadline_secs")
	}
	if cfg.LPLockDays <= 0 {
		return errors.New("invalid lp_lock_days")
	}
	if cfg.PoolFeeBps >= 10_000 {
		return errors.New("pool_fee_bps must be below 10000")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return nil
}
