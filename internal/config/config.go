// Package config holds the storefront configuration, assembled by configloader from pkg/config sections.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cartcraft/storefront/pkg/config"
	"github.com/cartcraft/storefront/pkg/config/configloader"
)

// LegacyAPIKeyEnv is read when auth.apikey is not configured.
const LegacyAPIKeyEnv = "ADMIN_API_KEY"

const (
	CatalogDriverFile     = "file"
	CatalogDriverPostgres = "postgres"

	AuthModeAPIKey = "apikey"
	AuthModeJWT    = "jwt"

	PageCacheDriverMemory = "memory"
	PageCacheDriverRedis  = "redis"

	RevalidateModeDirect = "direct"
	RevalidateModeHTTP   = "http"
)

const (
	defaultCatalogFile       = "data/products.json"
	defaultPageTTL           = 60 * time.Second
	defaultSweepInterval     = time.Minute
	defaultRevalidateTimeout = 5 * time.Second
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Catalog    CatalogConfig          `koanf:"catalog"`
	Auth       AuthConfig             `koanf:"auth"`
	PageCache  PageCacheConfig        `koanf:"pagecache"`
	Revalidate RevalidateConfig       `koanf:"revalidate"`
	NATS       config.NATSConfig      `koanf:"nats"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
}

// CatalogConfig selects where products are persisted.
type CatalogConfig struct {
	Driver string `koanf:"driver"`
	File   struct {
		Path string `koanf:"path"`
	} `koanf:"file"`
	Database config.DatabaseConfig `koanf:"database"`
}

// AuthConfig configures the guard in front of mutations and invalidation.
type AuthConfig struct {
	Mode   string `koanf:"mode"`
	APIKey string `koanf:"apikey"`
	// Header carries the credential. Defaults to x-api-key.
	Header string `koanf:"header"`
	// LegacyDefault accepts the historical built-in key when no key is configured.
	LegacyDefault bool       `koanf:"legacydefault"`
	IdP           config.IdP `koanf:"idp"`
}

type PageCacheConfig struct {
	Driver        string             `koanf:"driver"`
	TTL           time.Duration      `koanf:"ttl"`
	SweepInterval time.Duration      `koanf:"sweepinterval"`
	Redis         config.RedisConfig `koanf:"redis"`
}

// RevalidateConfig controls the invalidation issued after each mutation.
type RevalidateConfig struct {
	Mode           string                      `koanf:"mode"`
	BaseURL        string                      `koanf:"baseurl"`
	Timeout        time.Duration               `koanf:"timeout"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())

	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  catalog.driver: %s\n", c.Catalog.Driver))
	if c.Catalog.Driver == CatalogDriverPostgres {
		b.WriteString(c.Catalog.Database.String())
	} else {
		b.WriteString(fmt.Sprintf("  catalog.file.path: %s\n", c.Catalog.File.Path))
	}

	b.WriteString("\n--- Auth ---\n")
	b.WriteString(fmt.Sprintf("  auth.mode: %s\n", c.Auth.Mode))
	b.WriteString(fmt.Sprintf("  auth.header: %s\n", c.Auth.Header))
	b.WriteString(fmt.Sprintf("  auth.apikey: %s\n", maskSecret(c.Auth.APIKey)))
	b.WriteString(fmt.Sprintf("  auth.legacydefault: %t\n", c.Auth.LegacyDefault))
	if c.Auth.Mode == AuthModeJWT {
		b.WriteString(c.Auth.IdP.String())
	}

	b.WriteString("\n--- Page Cache ---\n")
	b.WriteString(fmt.Sprintf("  pagecache.driver: %s\n", c.PageCache.Driver))
	b.WriteString(fmt.Sprintf("  pagecache.ttl: %s\n", c.PageCache.TTL))
	if c.PageCache.Driver == PageCacheDriverRedis {
		b.WriteString(c.PageCache.Redis.String())
	}

	b.WriteString("\n--- Revalidate ---\n")
	b.WriteString(fmt.Sprintf("  revalidate.mode: %s\n", c.Revalidate.Mode))
	b.WriteString(fmt.Sprintf("  revalidate.timeout: %s\n", c.Revalidate.Timeout))
	if c.Revalidate.Mode == RevalidateModeHTTP {
		b.WriteString(fmt.Sprintf("  revalidate.baseurl: %s\n", c.Revalidate.BaseURL))
		b.WriteString(c.Revalidate.CircuitBreaker.String())
	}

	b.WriteString(c.NATS.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.PageCache.Validate(); err != nil {
		return err
	}
	if err := c.Revalidate.Validate(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *CatalogConfig) Validate() error {
	switch c.Driver {
	case "", CatalogDriverFile:
		c.Driver = CatalogDriverFile
		if c.File.Path == "" {
			log.Println("Using default value for catalog.file.path")
			c.File.Path = defaultCatalogFile
		}
		return nil
	case CatalogDriverPostgres:
		return c.Database.Validate()
	default:
		return fmt.Errorf("unknown catalog driver %q", c.Driver)
	}
}

// Validate resolves the API key. Without a key, startup fails unless LegacyDefault is set.
func (c *AuthConfig) Validate() error {
	switch c.Mode {
	case "", AuthModeAPIKey:
		c.Mode = AuthModeAPIKey
		if c.APIKey == "" {
			c.APIKey = strings.TrimSpace(os.Getenv(LegacyAPIKeyEnv))
		}
		if c.APIKey == "" && !c.LegacyDefault {
			return fmt.Errorf("auth.apikey is not configured and auth.legacydefault is disabled")
		}
	case AuthModeJWT:
		if err := c.IdP.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Mode)
	}
	return nil
}

func (c *PageCacheConfig) Validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("pagecache.ttl must not be negative: %s", c.TTL)
	}
	if c.TTL == 0 {
		c.TTL = defaultPageTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	switch c.Driver {
	case "", PageCacheDriverMemory:
		c.Driver = PageCacheDriverMemory
		return nil
	case PageCacheDriverRedis:
		return c.Redis.Validate()
	default:
		return fmt.Errorf("unknown page cache driver %q", c.Driver)
	}
}

func (c *RevalidateConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("revalidate.timeout must not be negative: %s", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = defaultRevalidateTimeout
	}
	switch c.Mode {
	case "", RevalidateModeDirect:
		c.Mode = RevalidateModeDirect
		return nil
	case RevalidateModeHTTP:
		if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
			return fmt.Errorf("revalidate.baseurl must be an http(s) URL: %q", c.BaseURL)
		}
		return c.CircuitBreaker.Validate()
	default:
		return fmt.Errorf("unknown revalidate mode %q", c.Mode)
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}
