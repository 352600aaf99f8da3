package config

import (
	"net/netip"
	"strings"
	"time"

	"nextaz-be/internal/pricing"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv  string `env:"APP_ENV" default:"development"`
	AppPort string `env:"APP_PORT" default:"8080"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" default:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" default:"disable"`
	DBURL      string `env:"DB_URL"`

	PublicBaseURL  string `env:"PUBLIC_BASE_URL"`
	CORSOrigins    string `env:"CORS_ORIGINS" default:"http://localhost:4321"`
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	NetopiaAPIKey       string `env:"NETOPIA_API_KEY"`
	NetopiaPOSSignature string `env:"NETOPIA_POS_SIGNATURE"`
	NetopiaPublicKey    string `env:"NETOPIA_PUBLIC_KEY"`
	NetopiaSandbox      bool   `env:"NETOPIA_SANDBOX" default:"true"`
	NetopiaIPNStrict    bool   `env:"NETOPIA_IPN_STRICT" default:"false"`

	SGRDeposit         string `env:"SGR_DEPOSIT" default:"0.50"`
	PackageBottleCount int    `env:"PACKAGE_BOTTLE_COUNT" default:"4"`
	Currency           string `env:"CURRENCY" default:"RON"`

	SanityProjectID  string `env:"SANITY_PROJECT_ID" default:"5fmpwxu0"`
	SanityDataset    string `env:"SANITY_DATASET" default:"production"`
	SanityAPIVersion string `env:"SANITY_API_VERSION" default:"2024-01-01"`
	SanityToken      string `env:"SANITY_TOKEN"`

	ResendAPIKey     string `env:"RESEND_API_KEY"`
	MailFrom         string `env:"MAIL_FROM" default:"Nextaz <comenzi@nextaz.ro>"`
	AdminEmail       string `env:"ADMIN_EMAIL" default:"contact@nextaz.ro"`
	EmailQueueSize   int    `env:"EMAIL_QUEUE_SIZE" default:"100"`
	EmailMaxAttempts int    `env:"EMAIL_MAX_ATTEMPTS" default:"3"`

	JWTSecret         string `env:"JWT_SECRET"`
	AdminUsername     string `env:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	InternalSecretKey string `env:"INTERNAL_SECRET_KEY"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// NetopiaConfig is the gateway slice of the configuration.
type NetopiaConfig struct {
	APIKey       string
	POSSignature string
	PublicKey    string
	Sandbox      bool
	Strict       bool
}

// Configured reports whether payments can be initiated for real.
func (n NetopiaConfig) Configured() bool {
	return n.APIKey != "" && n.POSSignature != ""
}

func (n NetopiaConfig) Live() bool {
	return !n.Sandbox
}

// LoadConfig reads .env (when present), then environment variables and an
// optional config.yaml on top of the defaults.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		Files:     []string{"config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if cfg.DBHost == "" && cfg.DBURL == "" {
		return nil, errors.New("database location is required: set DB_HOST or DB_URL")
	}

	if _, err := cfg.Pricing(); err != nil {
		return nil, err
	}

	if _, err := cfg.TrustedProxyPrefixes(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Pricing builds the immutable pricing constants.
func (c *Config) Pricing() (pricing.Config, error) {
	deposit, err := decimal.NewFromString(strings.TrimSpace(c.SGRDeposit))
	if err != nil {
		return pricing.Config{}, errors.Wrapf(err, "parse SGR_DEPOSIT %q", c.SGRDeposit)
	}

	p, err := pricing.NewConfig(deposit, c.PackageBottleCount, c.Currency)
	if err != nil {
		return pricing.Config{}, errors.Wrap(err, "pricing config")
	}
	return p, nil
}

func (c *Config) Netopia() NetopiaConfig {
	return NetopiaConfig{
		APIKey:       c.NetopiaAPIKey,
		POSSignature: c.NetopiaPOSSignature,
		PublicKey:    c.NetopiaPublicKey,
		Sandbox:      c.NetopiaSandbox,
		Strict:       c.NetopiaIPNStrict,
	}
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES, a comma separated list of IPs
// or CIDRs whose forwarding headers are believed.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range strings.Split(c.TrustedProxies, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "parse TRUSTED_PROXIES entry %q", raw)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse TRUSTED_PROXIES entry %q", raw)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
