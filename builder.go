package authcore

import (
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/internal/tasks"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/storage"
	"github.com/MrEthical07/authcore/verification"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be used once.
type Builder struct {
	config    Config
	store     storage.Store
	redis     redis.UniversalClient
	transport mail.Transport
	log       *zap.Logger
	now       func() time.Time
	auditSink audit.Sink

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the persistence backend. Required.
func (b *Builder) WithStore(store storage.Store) *Builder {
	b.store = store
	return b
}

// WithRedis enables rate limiting. Without it every limit is off.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMailTransport sets the delivery transport. Defaults to a log-only transport.
func (b *Builder) WithMailTransport(t mail.Transport) *Builder {
	b.transport = t
	return b
}

func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// WithClock replaces time.Now for every expiry decision the engine makes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithAuditWriter sends audit events to w as JSON lines instead of the logger.
func (b *Builder) WithAuditWriter(w io.Writer) *Builder {
	if w != nil {
		b.auditSink = audit.NewJSONWriterSink(w)
	}
	return b
}

// Build validates the configuration and starts the mail and background workers.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("storage backend required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.log
	if log == nil {
		log = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	hasher, err := cfg.newHasher()
	if err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	access, err := jwt.NewManager(jwt.Config{
		AccessTTL: cfg.JWT.AccessTTL,
		Secret:    []byte(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		Leeway:    cfg.JWT.Leeway,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(b.store, access, session.Config{
		RefreshTTL:     cfg.Session.RefreshTTL,
		ReuseDetection: cfg.Session.ReuseDetection,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	otpEngine, err := otp.NewEngine(b.store, otp.Config{
		CodeTTL: cfg.OTP.CodeTTL,
		Digits:  cfg.OTP.Digits,
		Period:  cfg.OTP.Period,
		Now:     now,
	})
	if err != nil {
		return nil, err
	}

	verifier, err := verification.NewEngine(b.store, verification.Config{
		Secret:          []byte(cfg.EmailVerification.Secret),
		TokenTTL:        cfg.EmailVerification.TokenTTL,
		FreshnessWindow: cfg.EmailVerification.FreshnessWindow,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}

	// -------- ASYNC --------
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}
	queue := mail.NewQueue(mail.QueueConfig{
		Capacity:    cfg.Mail.QueueCapacity,
		Workers:     cfg.Mail.Workers,
		SendTimeout: cfg.Mail.SendTimeout,
	}, renderer, b.transport, log.Named("mail"))

	runner := tasks.NewRunner(tasks.Config{
		BufferSize: cfg.Background.BufferSize,
		Workers:    cfg.Background.Workers,
		Timeout:    cfg.Background.TaskTimeout,
	}, log.Named("tasks"))

	auditSink := b.auditSink
	if auditSink == nil {
		auditSink = audit.NewZapSink(log.Named("audit"))
	}
	trail := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: true,
	}, auditSink, log, now)

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		log:       log,
		now:       now,
		passwords: hasher,
		sessions:  sessions,
		otp:       otpEngine,
		verifier:  verifier,
		mail:      queue,
		tasks:     runner,
		audit:     trail,
		metrics:   NewMetrics(cfg.Metrics),
	}

	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			MaxLoginAttempts:       cfg.RateLimit.MaxLoginAttempts,
			LoginWindow:            cfg.RateLimit.LoginWindow,
			MaxOTPAttempts:         cfg.RateLimit.MaxOTPAttempts,
			OTPWindow:              cfg.RateLimit.OTPWindow,
			MaxVerificationSends:   cfg.RateLimit.MaxVerificationSends,
			VerificationSendWindow: cfg.RateLimit.VerificationSendWindow,
		})
	}

	b.built = true

	return engine, nil
}
