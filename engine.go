package authcore

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/internal/tasks"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/storage"
	"github.com/MrEthical07/authcore/verification"
	"go.uber.org/zap"
)

// Engine composes password, OTP, verification and session components into
// the externally visible flows. It is safe for concurrent use.
type Engine struct {
	config    Config
	store     storage.Store
	log       *zap.Logger
	now       func() time.Time
	passwords *password.Manager
	sessions  *session.Manager
	otp       *otp.Engine
	verifier  *verification.Engine
	mail      *mail.Queue
	tasks     *tasks.Runner
	limiter   *rate.Limiter
	audit     *audit.Dispatcher
	metrics   *Metrics
}

// Close drains the mail queue, background runner and audit trail. The store
// and Redis client belong to the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.tasks.Close()
	e.mail.Close()
	e.audit.Close()
}

// MetricsSnapshot returns counters plus mail and task backpressure counts.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	s := e.metrics.Snapshot()
	s.MailDropped = e.mail.Dropped()
	s.MailFailed = e.mail.Failed()
	s.TasksDropped = e.tasks.Dropped()
	s.TasksFailed = e.tasks.Failed()
	s.AuditDropped = e.audit.Dropped()
	return s
}

// MailDropped returns the number of messages rejected because the queue was full.
func (e *Engine) MailDropped() uint64 { return e.mail.Dropped() }

// TasksDropped returns the number of background tasks rejected because the runner was full.
func (e *Engine) TasksDropped() uint64 { return e.tasks.Dropped() }

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (e *Engine) checkPassword(pw string) error {
	if len(pw) < e.config.Password.MinLength || len(pw) > e.config.Password.MaxLength {
		return ErrInvalidPassword
	}
	return nil
}

func (e *Engine) hashPassword(pw string) (string, string, error) {
	hash, algorithm, err := e.passwords.Hash(pw)
	switch {
	case err == nil:
		return hash, algorithm, nil
	case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong):
		return "", "", ErrInvalidPassword
	default:
		return "", "", e.internal("hash password", err)
	}
}

// internal logs err and returns ErrInternal wrapped with op.
func (e *Engine) internal(op string, err error, fields ...zap.Field) error {
	e.log.Error(op+" failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", op, ErrInternal)
}

// limited maps a limiter result. Backend failures are logged and allowed.
func (e *Engine) limited(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metrics.Inc(MetricRateLimitHit)
		return ErrRateLimited
	default:
		e.log.Warn("rate limiter unavailable", zap.String("op", op), zap.Error(err))
		return nil
	}
}

// background schedules fn on the runner. When the runner refuses the task it
// runs inline so the bookkeeping is not lost.
func (e *Engine) background(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if e.tasks.Submit(ctx, tasks.Task{Name: name, Run: fn}) {
		return
	}
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Background.TaskTimeout)
	defer cancel()
	if err := fn(tctx); err != nil {
		e.log.Warn("inline background task failed", zap.String("task", name), zap.Error(err))
	}
}

func (e *Engine) enqueueMail(ctx context.Context, msg mail.Message) error {
	err := e.mail.Enqueue(ctx, msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mail.ErrQueueFull), errors.Is(err, mail.ErrQueueClosed):
		e.metrics.Inc(MetricMailQueueFull)
		e.log.Warn("mail not queued", zap.String("template", msg.Template), zap.Error(err))
		return ErrMailQueueFull
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.log.Debug("mail not queued, caller gone", zap.String("template", msg.Template), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	default:
		return e.internal("enqueue mail", err)
	}
}

// emit records an audit event. A nil err marks the outcome successful.
func (e *Engine) emit(ctx context.Context, eventType, userID, email string, err error, meta ...string) {
	if e.audit == nil {
		return
	}
	ev := audit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		Success:   err == nil,
	}
	if err != nil {
		ev.Error = publicMessage(err)
	}
	if len(meta) > 1 {
		ev.Metadata = make(map[string]string, len(meta)/2)
		for i := 0; i+1 < len(meta); i += 2 {
			ev.Metadata[meta[i]] = meta[i+1]
		}
	}
	e.audit.Emit(ctx, ev)
}

func publicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return ErrInternal.Msg
}

func toSession(s *session.Session) *Session {
	return &Session{
		UserID:           s.UserID,
		AccessToken:      s.AccessToken,
		RefreshToken:     s.RefreshToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
	}
}

func toProfile(u *storage.User) *UserProfile {
	return &UserProfile{
		ID:              u.ID,
		Email:           u.Email,
		IsEmailVerified: u.IsEmailVerified,
		Is2FAEnabled:    u.Is2FAEnabled,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
