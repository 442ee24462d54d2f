package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
)

type Config struct {
	Server    ServerConfig
	Cloudbeds CloudbedsConfig
	Cache     CacheConfig
	Fetch     FetchConfig

	// Canonical properties, in display order. Always rendered in the
	// calendar even when Cloudbeds returns nothing for them.
	Properties []PropertyConfig

	// Credentials per property id, loaded from the environment.
	Credentials map[string]core.Credentials
}

type ServerConfig struct {
	Port string
	Mode string
}

type CloudbedsConfig struct {
	APIURL  string
	AuthURL string
	Timeout time.Duration

	// Refresh calls per second allowed against the OAuth endpoint,
	// shared across all properties. Cloudbeds rate-limits these.
	RefreshRateLimit float64
	RefreshBurst     int
}

type CacheConfig struct {
	TTL time.Duration
}

type FetchConfig struct {
	// Max properties queried at once.
	Concurrency int
}

type PropertyConfig struct {
	ID          string
	Name        string
	CloudbedsID string
}

// Load reads config.yaml (optional) plus environment variables.
// Property credentials follow the CLOUDBEDS_CLIENT_ID_<PROP> /
// CLOUDBEDS_CLIENT_SECRET_<PROP> / CLOUDBEDS_REFRESH_TOKEN_<PROP>
// scheme, one set per property id.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("CALENDARIO")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("cloudbeds.apiurl", "https://api.cloudbeds.com/api/v1.3")
	viper.SetDefault("cloudbeds.authurl", "https://hotels.cloudbeds.com/api/v1.1/access_token")
	viper.SetDefault("cloudbeds.timeout", "15s")
	viper.SetDefault("cloudbeds.refreshratelimit", 1.0)
	viper.SetDefault("cloudbeds.refreshburst", 4)
	viper.SetDefault("cache.ttl", "60s")
	viper.SetDefault("fetch.concurrency", 3)

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	// Default property set if not configured
	if len(cfg.Properties) == 0 {
		cfg.Properties = []PropertyConfig{
			{ID: "lapunta", Name: "Aguamiel La Punta", CloudbedsID: "318973"},
			{ID: "aguablanca", Name: "Aguamiel Agua Blanca", CloudbedsID: "318972"},
			{ID: "esmeralda", Name: "Aguamiel Esmeralda", CloudbedsID: "318979"},
		}
	}

	cfg.Credentials = make(map[string]core.Credentials, len(cfg.Properties))
	for _, p := range cfg.Properties {
		cfg.Credentials[p.ID] = credentialsFromEnv(p.ID)
	}

	if cfg.Fetch.Concurrency < 1 {
		return nil, fmt.Errorf("fetch.concurrency must be at least 1, got %d", cfg.Fetch.Concurrency)
	}

	return &cfg, nil
}

func credentialsFromEnv(propertyID string) core.Credentials {
	suffix := strings.ToUpper(propertyID)
	return core.Credentials{
		ClientID:     os.Getenv("CLOUDBEDS_CLIENT_ID_" + suffix),
		ClientSecret: os.Getenv("CLOUDBEDS_CLIENT_SECRET_" + suffix),
		RefreshToken: os.Getenv("CLOUDBEDS_REFRESH_TOKEN_" + suffix),
	}
}

// CanonicalProperties returns the configured property list as core
// values, preserving order.
func (c *Config) CanonicalProperties() []core.Property {
	props := make([]core.Property, 0, len(c.Properties))
	for _, p := range c.Properties {
		cloudbedsID := p.CloudbedsID
		if env := os.Getenv("CLOUDBEDS_PROPERTY_ID_" + strings.ToUpper(p.ID)); env != "" {
			cloudbedsID = env
		}
		props = append(props, core.Property{ID: p.ID, Name: p.Name, CloudbedsID: cloudbedsID})
	}
	return props
}
