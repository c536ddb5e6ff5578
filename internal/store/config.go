package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode   string `yaml:"mode"` // DRY_RUN or LIVE
	Wallet struct {
		Address    string  `yaml:"address"`
		BalanceUSD float64 `yaml:"balance_usd"`
	} `yaml:"wallet"`
	Trading struct {
		MaxPositionSizePct float64 `yaml:"max_position_size_percent"`
		MaxSlippagePct     float64 `yaml:"max_slippage_percent"`
		DailyLossLimitUSD  float64 `yaml:"daily_loss_limit_usd"`
	} `yaml:"trading"`
	Risk struct {
		MinLiquidityUSD           float64 `yaml:"min_liquidity_usd"`
		MaxHolderConcentrationPct float64 `yaml:"max_holder_concentration_percent"`
		MinHolderCount            int     `yaml:"min_holder_count"`
	} `yaml:"risk"`
	Discovery struct {
		Provider        string `yaml:"provider"` // SIM is the only provider today
		Seed            int64  `yaml:"seed"`
		MaxCandidates   int    `yaml:"max_candidates"`
		MarketCondition string `yaml:"market_condition"`
	} `yaml:"discovery"`
	Runner struct {
		RefreshIntervalSeconds int  `yaml:"refresh_interval_seconds"`
		MaxCycles              int  `yaml:"max_cycles"`
		Autostart              bool `yaml:"autostart"`
	} `yaml:"runner"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Data struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"data"`
}

func (c *Config) DryRun() bool { return c.Mode == "DRY_RUN" }

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Wallet.Address == "" {
		return errors.New("wallet.address cannot be empty")
	}
	if c.Wallet.BalanceUSD < 0 {
		return fmt.Errorf("wallet.balance_usd cannot be negative, got %.2f", c.Wallet.BalanceUSD)
	}
	if c.Trading.MaxPositionSizePct <= 0 || c.Trading.MaxPositionSizePct > 100 {
		return fmt.Errorf("trading.max_position_size_percent must be between 0-100, got %.2f", c.Trading.MaxPositionSizePct)
	}
	if c.Trading.MaxSlippagePct <= 0 || c.Trading.MaxSlippagePct > 100 {
		return fmt.Errorf("trading.max_slippage_percent must be between 0-100, got %.2f", c.Trading.MaxSlippagePct)
	}
	if c.Trading.DailyLossLimitUSD <= 0 {
		return fmt.Errorf("trading.daily_loss_limit_usd must be positive, got %.2f", c.Trading.DailyLossLimitUSD)
	}
	if c.Risk.MinLiquidityUSD <= 0 {
		return fmt.Errorf("risk.min_liquidity_usd must be positive, got %.2f", c.Risk.MinLiquidityUSD)
	}
	if c.Risk.MaxHolderConcentrationPct <= 0 || c.Risk.MaxHolderConcentrationPct > 100 {
		return fmt.Errorf("risk.max_holder_concentration_percent must be between 0-100, got %.2f", c.Risk.MaxHolderConcentrationPct)
	}
	if c.Risk.MinHolderCount <= 0 {
		return fmt.Errorf("risk.min_holder_count must be positive, got %d", c.Risk.MinHolderCount)
	}
	if c.Runner.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("runner.refresh_interval_seconds must be positive, got %d", c.Runner.RefreshIntervalSeconds)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Wallet.BalanceUSD == 0 {
		c.Wallet.BalanceUSD = 1000
	}
	if c.Trading.MaxPositionSizePct == 0 {
		c.Trading.MaxPositionSizePct = 1.0
	}
	if c.Trading.MaxSlippagePct == 0 {
		c.Trading.MaxSlippagePct = 5.0
	}
	if c.Trading.DailyLossLimitUSD == 0 {
		c.Trading.DailyLossLimitUSD = 100
	}
	if c.Risk.MinLiquidityUSD == 0 {
		c.Risk.MinLiquidityUSD = 10000
	}
	if c.Risk.MaxHolderConcentrationPct == 0 {
		c.Risk.MaxHolderConcentrationPct = 30.0
	}
	if c.Risk.MinHolderCount == 0 {
		c.Risk.MinHolderCount = 50
	}
	if c.Discovery.Provider == "" {
		c.Discovery.Provider = "SIM"
	}
	if c.Discovery.MaxCandidates == 0 {
		c.Discovery.MaxCandidates = 3
	}
	if c.Discovery.MarketCondition == "" {
		c.Discovery.MarketCondition = "neutral"
	}
	if c.Runner.RefreshIntervalSeconds == 0 {
		c.Runner.RefreshIntervalSeconds = 180
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
}
