package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	AllowedOrigins   []string
	SecureCookies    bool

	// Infrastructure. Empty DBAddr in dev selects the in-memory stores;
	// empty RedisAddr selects the in-process rate limiter.
	DBAddr        string
	DBDebug       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	//Sessions / credentials
	SessionSecret string
	SessionIssuer string
	SessionTTL    time.Duration
	BcryptCost    int
	SignInDelay   time.Duration
	StoreTimeout  time.Duration

	// Password reset
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
	TokenSweepInterval    time.Duration

	// Mail: smtp | rabbitmq | log
	MailTransport  string
	MailTimeout    time.Duration
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	SMTPFromName   string
	RabbitURL      string
	RabbitExchange string
	ContactInbox   string

	// Rate limits, per client and window. 0 disables a limit.
	RateLimitWindow   time.Duration
	SignInRateLimit   int
	RegisterRateLimit int
	ForgotRateLimit   int
	ContactRateLimit  int

	// Dev seed; skipped when email is empty
	SeedAdminName     string
	SeedAdminEmail    string
	SeedAdminPassword string
}

func (c *Config) IsProd() bool { return c.Env == "prod" }

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	dur := func(key string, def time.Duration) time.Duration {
		d, err := getDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	num := func(key string, def int) int {
		n, err := getInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}

	//Timeout values are optional and have a default value if not
	cfg.HTTPReadTimeout = dur("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = dur("HTTP_WRITE_TIMEOUT", 30*time.Second)
	cfg.HTTPIdleTimeout = dur("HTTP_IDLE_TIMEOUT", time.Minute)
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))
	cfg.SecureCookies = getBool("COOKIE_SECURE", cfg.IsProd())

	cfg.DBAddr = os.Getenv("DB_ADDR")
	cfg.DBDebug = getBool("DB_DEBUG", false)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = num("REDIS_DB", 0)

	// required values
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.SessionIssuer = getEnv("SESSION_ISSUER", "ameua")
	cfg.SessionTTL = dur("SESSION_TTL", 30*24*time.Hour)
	cfg.BcryptCost = num("BCRYPT_COST", 12)
	cfg.SignInDelay = dur("SIGNIN_DELAY", 2*time.Second)
	cfg.StoreTimeout = dur("STORE_TIMEOUT", 5*time.Second)

	// Must include `token=` because the service appends the token.
	cfg.PasswordResetBaseURL = getEnv("PASSWORD_RESET_BASE_URL", "http://localhost:3000/reset-password?token=")
	cfg.PasswordResetTokenTTL = dur("PASSWORD_RESET_TOKEN_TTL", time.Hour)
	cfg.TokenSweepInterval = dur("TOKEN_SWEEP_INTERVAL", 15*time.Minute)

	cfg.MailTransport = strings.ToLower(getEnv("MAIL_TRANSPORT", "log"))
	cfg.MailTimeout = dur("MAIL_TIMEOUT", 10*time.Second)
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = num("SMTP_PORT", 587)
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	cfg.SMTPFromName = getEnv("SMTP_FROM_NAME", "Alumni Association")
	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "alumni.mail")
	cfg.ContactInbox = os.Getenv("CONTACT_INBOX")

	cfg.RateLimitWindow = dur("RATE_LIMIT_WINDOW", time.Minute)
	cfg.SignInRateLimit = num("RATE_LIMIT_SIGNIN", 10)
	cfg.RegisterRateLimit = num("RATE_LIMIT_REGISTER", 5)
	cfg.ForgotRateLimit = num("RATE_LIMIT_FORGOT", 5)
	cfg.ContactRateLimit = num("RATE_LIMIT_CONTACT", 5)

	cfg.SeedAdminName = getEnv("SEED_ADMIN_NAME", "Administrator")
	cfg.SeedAdminEmail = strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL"))
	cfg.SeedAdminPassword = os.Getenv("SEED_ADMIN_PASSWORD")

	if len(errs) > 0 {
		return nil, errs[0]
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "staging", "prod":
	default:
		return fmt.Errorf("invalid ENV %q (dev|staging|prod)", c.Env)
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("missing required env var: SESSION_SECRET")
	}
	if c.IsProd() && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in prod")
	}

	// Fail fast outside dev: the service cannot run correctly on memory stores.
	if c.DBAddr == "" && c.Env != "dev" {
		return fmt.Errorf("missing required env var: DB_ADDR")
	}
	if c.DBAddr != "" {
		if err := validatePostgresDSN(c.DBAddr); err != nil {
			return err
		}
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.SignInDelay < 0 {
		return fmt.Errorf("SIGNIN_DELAY must not be negative")
	}
	if !strings.Contains(c.PasswordResetBaseURL, "token=") {
		return fmt.Errorf("PASSWORD_RESET_BASE_URL must contain `token=`")
	}

	switch c.MailTransport {
	case "log":
		if c.IsProd() {
			return fmt.Errorf("MAIL_TRANSPORT=log is not allowed in prod")
		}
	case "smtp":
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return fmt.Errorf("MAIL_TRANSPORT=smtp requires SMTP_HOST and SMTP_FROM")
		}
	case "rabbitmq":
		if c.RabbitURL == "" {
			return fmt.Errorf("MAIL_TRANSPORT=rabbitmq requires RABBIT_URL")
		}
	default:
		return fmt.Errorf("invalid MAIL_TRANSPORT %q (smtp|rabbitmq|log)", c.MailTransport)
	}

	if c.SeedAdminEmail != "" && c.SeedAdminPassword == "" {
		return fmt.Errorf("SEED_ADMIN_EMAIL requires SEED_ADMIN_PASSWORD")
	}
	return nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("invalid DB_ADDR scheme %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
