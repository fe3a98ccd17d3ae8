package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	DatabaseURL      string   `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret        string   `mapstructure:"JWT_SECRET"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	KeyEncryptionKey string   `mapstructure:"KEY_ENCRYPTION_KEY"`
	RootCAName       string   `mapstructure:"ROOT_CA_NAME"`
	RootCAOrg        string   `mapstructure:"ROOT_CA_ORG"`
	RootCACountry    string   `mapstructure:"ROOT_CA_COUNTRY"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ROOT_CA_NAME", "Niko System Root CA")
	v.SetDefault("ROOT_CA_ORG", "Ministry of Health")
	v.SetDefault("ROOT_CA_COUNTRY", "NP")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("KEY_ENCRYPTION_KEY")
	v.BindEnv("ROOT_CA_NAME")
	v.BindEnv("ROOT_CA_ORG")
	v.BindEnv("ROOT_CA_COUNTRY")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// KeyEncryptionKeyBytes decodes KEY_ENCRYPTION_KEY into the 32-byte AES-256
// key used to wrap stored private keys.
func (c *Config) KeyEncryptionKeyBytes() ([]byte, error) {
	keyBytes, err := hex.DecodeString(c.KeyEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("KEY_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("KEY_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
	}
	return keyBytes, nil
}

// Validate checks that the configuration is safe to run. In production
// JWT_SECRET and KEY_ENCRYPTION_KEY are required; KEY_ENCRYPTION_KEY must be
// a valid 64-character hex string whenever it is set.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.IsProduction() && c.KeyEncryptionKey == "" {
		return fmt.Errorf("KEY_ENCRYPTION_KEY is required in production")
	}
	if c.KeyEncryptionKey != "" {
		if _, err := c.KeyEncryptionKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}
