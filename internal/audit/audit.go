package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types emitted by the engine.
const (
	EventRegister        = "register"
	EventLogin           = "login"
	EventOTPValidate     = "otp_validate"
	EventRefreshReuse    = "refresh_reuse_detected"
	EventLogout          = "logout"
	EventEmailVerified   = "email_verified"
	EventPasswordChanged = "password_changed"
	EventEmailChanged    = "email_changed"
	EventAccountDeleted  = "account_deleted"
)

// Event is one security-relevant outcome. It never carries secrets, tokens,
// codes or passwords.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ZapSink writes each event as one structured log line.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.Time("at", event.Timestamp),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String(k, v))
	}
	s.log.Info("audit", fields...)
}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
