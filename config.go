package authcore

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/MrEthical07/authcore/password"
)

// Config groups every engine setting. Struct tags let caarlos0/env populate
// it directly; unset variables fall back to the envDefault values, which
// match DefaultConfig.
type Config struct {
	JWT               JWTConfig               `envPrefix:"AUTH_JWT_"`
	Session           SessionConfig           `envPrefix:"AUTH_SESSION_"`
	OTP               OTPConfig               `envPrefix:"AUTH_OTP_"`
	EmailVerification EmailVerificationConfig `envPrefix:"AUTH_EMAIL_VERIFICATION_"`
	Password          PasswordConfig          `envPrefix:"AUTH_PASSWORD_"`
	Mail              MailConfig              `envPrefix:"AUTH_MAIL_"`
	Background        BackgroundConfig        `envPrefix:"AUTH_BACKGROUND_"`
	RateLimit         RateLimitConfig         `envPrefix:"AUTH_RATE_LIMIT_"`
	Metrics           MetricsConfig           `envPrefix:"AUTH_METRICS_"`
	Audit             AuditConfig             `envPrefix:"AUTH_AUDIT_"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures HS256 access tokens.
type JWTConfig struct {
	Secret    string        `env:"SECRET"`
	AccessTTL time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	Issuer    string        `env:"ISSUER" envDefault:"authcore"`
	Audience  string        `env:"AUDIENCE"`
	Leeway    time.Duration `env:"LEEWAY" envDefault:"0s"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures refresh-token slots.
type SessionConfig struct {
	RefreshTTL     time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
	ReuseDetection bool          `env:"REUSE_DETECTION" envDefault:"false"`
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig configures second-factor codes.
type OTPConfig struct {
	CodeTTL time.Duration `env:"CODE_TTL" envDefault:"5m"`
	Digits  int           `env:"DIGITS" envDefault:"6"`
	Period  uint          `env:"PERIOD" envDefault:"30"`
}

/*
====================================
EMAIL VERIFICATION CONFIG
====================================
*/

// EmailVerificationConfig configures ownership tokens and the login policy.
type EmailVerificationConfig struct {
	Secret          string        `env:"SECRET"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	FreshnessWindow time.Duration `env:"FRESHNESS_WINDOW" envDefault:"24h"`
	// RequireForLogin rejects Login for unverified addresses before any code is sent.
	RequireForLogin bool   `env:"REQUIRE_FOR_LOGIN" envDefault:"true"`
	BaseURL         string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	ConfirmPath     string `env:"CONFIRM_PATH" envDefault:"/auth/email/confirm"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm for new credentials. Both
// algorithms stay registered for verification.
type PasswordConfig struct {
	Algorithm         string `env:"ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"12"`
	Argon2Memory      uint32 `env:"ARGON2_MEMORY" envDefault:"65536"` // in KB
	Argon2Time        uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2Parallelism uint8  `env:"ARGON2_PARALLELISM" envDefault:"2"`
	MinLength         int    `env:"MIN_LENGTH" envDefault:"8"`
	MaxLength         int    `env:"MAX_LENGTH" envDefault:"72"`
}

/*
====================================
MAIL CONFIG
====================================
*/

// MailConfig configures the outbound mail queue.
type MailConfig struct {
	From          string        `env:"FROM" envDefault:"no-reply@localhost"`
	QueueCapacity int           `env:"QUEUE_CAPACITY" envDefault:"256"`
	Workers       int           `env:"WORKERS" envDefault:"2"`
	SendTimeout   time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`
}

/*
====================================
BACKGROUND CONFIG
====================================
*/

// BackgroundConfig configures the best-effort bookkeeping runner.
type BackgroundConfig struct {
	BufferSize  int           `env:"BUFFER_SIZE" envDefault:"128"`
	Workers     int           `env:"WORKERS" envDefault:"2"`
	TaskTimeout time.Duration `env:"TASK_TIMEOUT" envDefault:"5s"`
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig holds fixed-window budgets. Limits apply only when the
// engine is built with a Redis client; a zero Max disables that limit.
type RateLimitConfig struct {
	MaxLoginAttempts       int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LoginWindow            time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	MaxOTPAttempts         int           `env:"MAX_OTP_ATTEMPTS" envDefault:"5"`
	OTPWindow              time.Duration `env:"OTP_WINDOW" envDefault:"5m"`
	MaxVerificationSends   int           `env:"MAX_VERIFICATION_SENDS" envDefault:"5"`
	VerificationSendWindow time.Duration `env:"VERIFICATION_SEND_WINDOW" envDefault:"1h"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED" envDefault:"true"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS" envDefault:"false"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the security event trail. Events are dropped, never
// waited on, when the buffer is full.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED" envDefault:"true"`
	BufferSize int  `env:"BUFFER_SIZE" envDefault:"256"`
}

// DefaultConfig returns the defaults with empty secrets. Callers must set
// JWT.Secret and EmailVerification.Secret before building.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
			Issuer:    "authcore",
		},
		Session: SessionConfig{
			RefreshTTL: 30 * 24 * time.Hour,
		},
		OTP: OTPConfig{
			CodeTTL: 5 * time.Minute,
			Digits:  6,
			Period:  30,
		},
		EmailVerification: EmailVerificationConfig{
			TokenTTL:        24 * time.Hour,
			FreshnessWindow: 24 * time.Hour,
			RequireForLogin: true,
			BaseURL:         "http://localhost:8080",
			ConfirmPath:     "/auth/email/confirm",
		},
		Password: PasswordConfig{
			Algorithm:         password.AlgorithmBcrypt,
			BcryptCost:        password.DefaultBcryptCost,
			Argon2Memory:      64 * 1024,
			Argon2Time:        3,
			Argon2Parallelism: 2,
			MinLength:         8,
			MaxLength:         72,
		},
		Mail: MailConfig{
			From:          "no-reply@localhost",
			QueueCapacity: 256,
			Workers:       2,
			SendTimeout:   30 * time.Second,
		},
		Background: BackgroundConfig{
			BufferSize:  128,
			Workers:     2,
			TaskTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxLoginAttempts:       5,
			LoginWindow:            15 * time.Minute,
			MaxOTPAttempts:         5,
			OTPWindow:              5 * time.Minute,
			MaxVerificationSends:   5,
			VerificationSendWindow: time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
		},
	}
}

const (
	minSecretBytes = 32
	maxAccessTTL   = 24 * time.Hour
)

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minSecretBytes {
		return fmt.Errorf("JWT Secret must be at least %d bytes", minSecretBytes)
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.AccessTTL > maxAccessTTL {
		return errors.New("JWT AccessTTL must be > 0 and <= 24h")
	}
	if c.Session.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("Session RefreshTTL must exceed JWT AccessTTL")
	}

	if c.OTP.CodeTTL <= 0 {
		return errors.New("OTP CodeTTL must be > 0")
	}
	if c.OTP.Digits < 6 || c.OTP.Digits > 8 {
		return errors.New("OTP Digits must be between 6 and 8")
	}
	if c.OTP.Period == 0 {
		return errors.New("OTP Period must be > 0")
	}

	if len(c.EmailVerification.Secret) < minSecretBytes {
		return fmt.Errorf("EmailVerification Secret must be at least %d bytes", minSecretBytes)
	}
	if c.EmailVerification.TokenTTL <= 0 || c.EmailVerification.FreshnessWindow <= 0 {
		return errors.New("EmailVerification TokenTTL and FreshnessWindow must be > 0")
	}
	if u, err := url.Parse(c.EmailVerification.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("EmailVerification BaseURL must be an absolute URL")
	}

	switch c.Password.Algorithm {
	case password.AlgorithmBcrypt, password.AlgorithmArgon2id:
	default:
		return fmt.Errorf("Password Algorithm %q is not supported", c.Password.Algorithm)
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.Algorithm == password.AlgorithmBcrypt && c.Password.MaxLength > 72 {
		return errors.New("Password MaxLength must be <= 72 with bcrypt")
	}

	if c.Mail.QueueCapacity <= 0 || c.Mail.Workers <= 0 {
		return errors.New("Mail QueueCapacity and Workers must be > 0")
	}
	if c.Background.BufferSize <= 0 || c.Background.Workers <= 0 || c.Background.TaskTimeout <= 0 {
		return errors.New("Background BufferSize, Workers and TaskTimeout must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.RateLimit.MaxLoginAttempts < 0 || c.RateLimit.MaxOTPAttempts < 0 || c.RateLimit.MaxVerificationSends < 0 {
		return errors.New("RateLimit budgets must be >= 0")
	}
	if c.RateLimit.MaxLoginAttempts > 0 && c.RateLimit.LoginWindow <= 0 {
		return errors.New("RateLimit LoginWindow must be > 0")
	}
	if c.RateLimit.MaxOTPAttempts > 0 && c.RateLimit.OTPWindow <= 0 {
		return errors.New("RateLimit OTPWindow must be > 0")
	}
	if c.RateLimit.MaxVerificationSends > 0 && c.RateLimit.VerificationSendWindow <= 0 {
		return errors.New("RateLimit VerificationSendWindow must be > 0")
	}

	return nil
}

func (c *Config) newHasher() (*password.Manager, error) {
	bc, err := password.NewBcrypt(c.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	ar, err := password.NewArgon2(password.Argon2Config{
		Memory:      c.Password.Argon2Memory,
		Time:        c.Password.Argon2Time,
		Parallelism: c.Password.Argon2Parallelism,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		return nil, err
	}

	if c.Password.Algorithm == password.AlgorithmArgon2id {
		return password.NewManager(c.Password.MinLength, ar, bc)
	}
	return password.NewManager(c.Password.MinLength, bc, ar)
}
