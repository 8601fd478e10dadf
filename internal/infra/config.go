package infra

import (
	"fmt"
	"os"

	"github.com/lincot/solana-ido/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Sensitive or deploy-specific
// values can be overridden through environment variables after load.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Ido struct {
		Authority    string `yaml:"authority"`
		AcdmMint     string `yaml:"acdm_mint"`
		UsdcMint     string `yaml:"usdc_mint"`
		RoundTimeSec int64  `yaml:"round_time_sec"`
		// Devnet enables the account/faucet endpoints used to fund
		// participants in local deployments.
		Devnet bool `yaml:"devnet"`
	} `yaml:"ido"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Display struct {
		// Decimal places used when rendering raw token units for humans.
		UsdcDecimals int32 `yaml:"usdc_decimals"`
		AcdmDecimals int32 `yaml:"acdm_decimals"`
	} `yaml:"display"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Ido.RoundTimeSec <= 0 {
		return fmt.Errorf("round_time_sec must be positive")
	}
	for _, field := range []struct{ name, value string }{
		{"ido.authority", c.Ido.Authority},
		{"ido.acdm_mint", c.Ido.AcdmMint},
		{"ido.usdc_mint", c.Ido.UsdcMint},
	} {
		if field.value == "" {
			return fmt.Errorf("%s is required", field.name)
		}
		if _, err := domain.ParseAddress(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Display.UsdcDecimals < 0 || c.Display.AcdmDecimals < 0 {
		return fmt.Errorf("display decimals must not be negative")
	}
	return nil
}

// Authority returns the parsed sale authority address.
func (c *Config) Authority() domain.Address {
	a, _ := domain.ParseAddress(c.Ido.Authority)
	return a
}

// AcdmMint returns the parsed sale-token mint address.
func (c *Config) AcdmMint() domain.Address {
	a, _ := domain.ParseAddress(c.Ido.AcdmMint)
	return a
}

// UsdcMint returns the parsed stable-token mint address.
func (c *Config) UsdcMint() domain.Address {
	a, _ := domain.ParseAddress(c.Ido.UsdcMint)
	return a
}

// overrideWithEnv applies environment overrides when present.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("IDO_AUTHORITY"); v != "" {
		cfg.Ido.Authority = v
	}
	if v := os.Getenv("IDO_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("IDO_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}
