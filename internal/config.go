package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Prices PricesConfig      `yaml:"prices"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Prices.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the encrypted vault file.
type VaultConfig struct {
	File string `yaml:"file"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.File, validation.Required),
	)
}

// PricesConfig holds quote provider configuration.
//
// Relays is the ordered list of relay URL prefixes tried before a direct
// fetch; the target URL is appended to each prefix query-escaped.
// FallbackUSDGBP is the hardcoded USD→GBP rate used when the conversion
// endpoint is unreachable.
type PricesConfig struct {
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CoinGeckoURL   string        `yaml:"coingecko_url"`
	QuoteURL       string        `yaml:"quote_url"`
	Relays         []string      `yaml:"relays"`
	FallbackUSDGBP float64       `yaml:"fallback_usd_gbp"`
}

// Validate validates the prices configuration.
func (c *PricesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.CoinGeckoURL, validation.Required),
		validation.Field(&c.QuoteURL, validation.Required),
		validation.Field(&c.FallbackUSDGBP, validation.Required, validation.Min(0.01)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3001,
			},
		},
		Vault: VaultConfig{
			File: "./data/portfolio.enc",
		},
		Prices: PricesConfig{
			CacheTTL:       15 * time.Minute,
			RequestTimeout: 15 * time.Second,
			CoinGeckoURL:   "https://api.coingecko.com/api/v3",
			QuoteURL:       "https://query1.finance.yahoo.com",
			Relays: []string{
				"https://api.allorigins.win/raw?url=",
				"https://corsproxy.io/?",
			},
			FallbackUSDGBP: 0.79,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
