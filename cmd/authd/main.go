// Command authd serves the authcore engine over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/httpapi"
	"github.com/MrEthical07/authcore/internal/config"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/storage/sqlstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type settings struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"true"`
	ExposeMetrics   bool          `env:"EXPOSE_METRICS" envDefault:"true"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"authcore.db"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	SMTP smtpSettings `envPrefix:"SMTP_"`

	Auth authcore.Config
}

type smtpSettings struct {
	Host        string        `env:"HOST"`
	Port        int           `env:"PORT" envDefault:"587"`
	Username    string        `env:"USERNAME"`
	Password    string        `env:"PASSWORD"`
	ImplicitTLS bool          `env:"IMPLICIT_TLS" envDefault:"false"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	var s settings
	if err := config.ParseEnv(&s); err != nil {
		return err
	}

	log := logging.New(s.LogLevel, s.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, sqlstore.Dialect(s.DBDriver), s.DBDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("database ready", zap.String("driver", s.DBDriver))

	builder := authcore.New().
		WithConfig(s.Auth).
		WithStore(store).
		WithLogger(log)

	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, rate limits fail open", zap.Error(err))
		}
		builder = builder.WithRedis(rdb)
	} else {
		log.Info("REDIS_ADDR not set, rate limiting disabled")
	}

	if s.SMTP.Host != "" {
		builder = builder.WithMailTransport(mail.NewSMTPTransport(mail.SMTPConfig{
			Host:        s.SMTP.Host,
			Port:        s.SMTP.Port,
			Username:    s.SMTP.Username,
			Password:    s.SMTP.Password,
			ImplicitTLS: s.SMTP.ImplicitTLS,
			Timeout:     s.SMTP.Timeout,
		}))
	} else {
		log.Warn("SMTP_HOST not set, mail is logged instead of sent")
		builder = builder.WithMailTransport(mail.NewLogTransport(log.Named("mail")))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	for _, w := range report.Warnings {
		log.Warn("security posture", zap.String("warning", w))
	}

	apiCfg := httpapi.Config{
		AllowedOrigins: s.CORSOrigins,
		CookieSecure:   s.CookieSecure,
	}
	if s.ExposeMetrics {
		apiCfg.Metrics = prometheus.NewExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:              s.HTTPAddr,
		Handler:           httpapi.NewRouter(engine, apiCfg, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", s.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
