package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultMetricsAddr      = ":9090"
	defaultCMABaseURL       = "https://api.contentful.com"
	defaultEnvironmentID    = "master"
	defaultLocale           = "en-US"
	defaultOEmbedEndpoint   = "https://view.ceros.com/oembed"
	defaultOEmbedHosts      = "view.ceros.com"
	defaultContentTypeID    = "cerosExperience"
	defaultCMARateLimit     = 7.0
	defaultHTTPTimeout      = 30 * time.Second
	defaultVaultCMATokenKey = "cma_token"
)

type Config struct {
	HTTPAddr    string
	MetricsAddr string

	CMABaseURL    string
	CMAToken      string
	SpaceID       string
	EnvironmentID string
	AppID         string
	Locale        string
	CMARateLimit  float64
	HTTPTimeout   time.Duration

	OEmbedEndpoint     string
	OEmbedAllowedHosts []string

	DefaultContentTypeID string
	CORSOrigins          []string

	VaultAddr          string
	VaultNamespace     string
	VaultAuthType      string
	VaultToken         string
	VaultAppRoleMount  string
	VaultAppRoleID     string
	VaultAppRoleSecret string
	VaultCMATokenPath  string
	VaultCMATokenKey   string
}

type LoadOptions struct {
	// RequireCMA makes the management API credentials mandatory. Commands that only inspect
	// configuration or fetch oEmbed metadata leave it off.
	RequireCMA bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireCMA: true})
}

func LoadOptionalCMA() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireCMA: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		HTTPAddr:             getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:          getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		CMABaseURL:           strings.TrimRight(getenvDefault("CMA_BASE_URL", defaultCMABaseURL), "/"),
		CMAToken:             strings.TrimSpace(os.Getenv("CMA_TOKEN")),
		SpaceID:              strings.TrimSpace(os.Getenv("SPACE_ID")),
		EnvironmentID:        getenvDefault("ENVIRONMENT_ID", defaultEnvironmentID),
		AppID:                strings.TrimSpace(os.Getenv("APP_ID")),
		Locale:               getenvDefault("DEFAULT_LOCALE", defaultLocale),
		CMARateLimit:         getenvFloatDefault("CMA_RATE_LIMIT", defaultCMARateLimit),
		HTTPTimeout:          defaultHTTPTimeout,
		OEmbedEndpoint:       getenvDefault("OEMBED_ENDPOINT", defaultOEmbedEndpoint),
		OEmbedAllowedHosts:   splitList(getenvDefault("OEMBED_ALLOWED_HOSTS", defaultOEmbedHosts)),
		DefaultContentTypeID: getenvDefault("DEFAULT_CONTENT_TYPE_ID", defaultContentTypeID),
		CORSOrigins:          splitList(os.Getenv("CORS_ORIGINS")),
		VaultAddr:            strings.TrimSpace(os.Getenv("VAULT_ADDR")),
		VaultNamespace:       strings.TrimSpace(os.Getenv("VAULT_NAMESPACE")),
		VaultAuthType:        getenvDefault("VAULT_AUTH_TYPE", "token"),
		VaultToken:           strings.TrimSpace(os.Getenv("VAULT_TOKEN")),
		VaultAppRoleMount:    getenvDefault("VAULT_APPROLE_MOUNT", "approle"),
		VaultAppRoleID:       strings.TrimSpace(os.Getenv("VAULT_APPROLE_ROLE_ID")),
		VaultAppRoleSecret:   strings.TrimSpace(os.Getenv("VAULT_APPROLE_SECRET_ID")),
		VaultCMATokenPath:    strings.TrimSpace(os.Getenv("VAULT_CMA_TOKEN_PATH")),
		VaultCMATokenKey:     getenvDefault("VAULT_CMA_TOKEN_KEY", defaultVaultCMATokenKey),
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}

	if opts.RequireCMA {
		if err := cfg.ValidateCMA(); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// UsesVaultToken reports whether the management token should be read from Vault.
func (c Config) UsesVaultToken() bool {
	return c.VaultAddr != "" && c.VaultCMATokenPath != ""
}

// ValidateCMA checks that the management API can be reached with the configured credentials.
func (c Config) ValidateCMA() error {
	if c.SpaceID == "" {
		return errors.New("SPACE_ID is required")
	}
	if c.AppID == "" {
		return errors.New("APP_ID is required")
	}
	if c.CMAToken == "" && !c.UsesVaultToken() {
		return errors.New("CMA_TOKEN is required (or VAULT_ADDR and VAULT_CMA_TOKEN_PATH)")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvFloatDefault(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
