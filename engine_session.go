package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/session"
	"go.uber.org/zap"
)

// Refresh rotates the slot that carries refreshToken and returns the new pair.
// The presented token stops working immediately.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidInput
	}

	s, err := e.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, e.sessionError(ctx, "refresh session", err)
	}
	e.metrics.Inc(MetricRefreshSuccess)
	return toSession(s), nil
}

// Logout revokes the slot that carries refreshToken. An unknown or already
// revoked token is an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrInvalidInput
	}
	if err := e.sessions.Logout(ctx, refreshToken); err != nil {
		return e.sessionError(ctx, "logout", err)
	}
	e.metrics.Inc(MetricLogout)
	e.emit(ctx, audit.EventLogout, "", "", nil)
	return nil
}

// ValidateAccessToken verifies a bearer token and returns its subject.
func (e *Engine) ValidateAccessToken(ctx context.Context, token string) (string, error) {
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	if token == "" {
		return "", ErrInvalidAccessToken
	}
	claims, err := e.sessions.ValidateAccess(token)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidAccessToken
	}
	return claims.Subject, nil
}

func (e *Engine) sessionError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrExpired):
		return ErrSessionExpired
	case errors.Is(err, session.ErrRevoked):
		return ErrSessionRevoked
	case errors.Is(err, session.ErrReuseDetected):
		e.metrics.Inc(MetricRefreshReuseDetected)
		e.log.Warn("refresh token reuse detected, sessions revoked")
		e.emit(ctx, audit.EventRefreshReuse, "", "", ErrRefreshReuse)
		return ErrRefreshReuse
	default:
		return e.internal(op, err, zap.String("op", op))
	}
}
