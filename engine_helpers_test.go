package authcore

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/storage"
	"github.com/MrEthical07/authcore/storage/sqlstore"
	"github.com/MrEthical07/authcore/storage/sqlstore/sqlstoretest"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	From, To, Subject, Body string
}

type captureTransport struct {
	ch chan sentMail

	mu    sync.Mutex
	block chan struct{}
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{ch: make(chan sentMail, 64)}
}

func (t *captureTransport) Send(_ context.Context, from, to, subject, body string) error {
	t.mu.Lock()
	block := t.block
	t.mu.Unlock()
	if block != nil {
		<-block
	}
	t.ch <- sentMail{From: from, To: to, Subject: subject, Body: body}
	return nil
}

// hold makes every later Send wait until the returned func is called.
func (t *captureTransport) hold() func() {
	ch := make(chan struct{})
	t.mu.Lock()
	t.block = ch
	t.mu.Unlock()
	return func() { close(ch) }
}

func (t *captureTransport) next(tb testing.TB) sentMail {
	tb.Helper()
	select {
	case m := <-t.ch:
		return m
	case <-time.After(2 * time.Second):
		tb.Fatal("timed out waiting for mail")
		return sentMail{}
	}
}

type testEnv struct {
	engine *Engine
	mail   *captureTransport
	clock  *fakeClock
	store  *sqlstore.Store
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = strings.Repeat("j", 32)
	cfg.EmailVerification.Secret = strings.Repeat("v", 32)
	cfg.EmailVerification.BaseURL = "https://app.example.com"
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Mail.From = "no-reply@example.com"
	return cfg
}

func newTestEnv(t testing.TB, mutate func(*Config)) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, sqlstoretest.Open(t), mutate)
}

func newTestEnvWithStore(t testing.TB, store *sqlstore.Store, mutate func(*Config), wrap ...func(storage.Store) storage.Store) *testEnv {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	var s storage.Store = store
	for _, w := range wrap {
		s = w(s)
	}

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tr := newCaptureTransport()
	e, err := New().
		WithConfig(cfg).
		WithStore(s).
		WithMailTransport(tr).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(e.Close)

	return &testEnv{engine: e, mail: tr, clock: clock, store: store}
}

var (
	tokenPattern = regexp.MustCompile(`token=(vr_[A-Za-z0-9]+_[0-9]+_[0-9a-f]+)`)
	codePattern  = regexp.MustCompile(`<strong>([0-9]{6,8})</strong>`)
)

func tokenFrom(tb testing.TB, m sentMail) string {
	tb.Helper()
	match := tokenPattern.FindStringSubmatch(m.Body)
	if match == nil {
		tb.Fatalf("no verification token in mail %q", m.Subject)
	}
	return match[1]
}

func codeFrom(tb testing.TB, m sentMail) string {
	tb.Helper()
	match := codePattern.FindStringSubmatch(m.Body)
	if match == nil {
		tb.Fatalf("no otp code in mail %q", m.Subject)
	}
	return match[1]
}

// registerVerified registers email and confirms it, returning the user id.
func (env *testEnv) registerVerified(t testing.TB, email, pw string) string {
	t.Helper()
	ctx := context.Background()

	res, err := env.engine.Register(ctx, email, pw)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := env.engine.ConfirmEmail(ctx, res.UserID, tokenFrom(t, env.mail.next(t))); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	env.engine.tasks.Wait()
	return res.UserID
}

// signIn runs Login and ValidateOTP with the mailed code.
func (env *testEnv) signIn(t testing.TB, email, pw string) *Session {
	t.Helper()
	ctx := context.Background()

	res, err := env.engine.Login(ctx, email, pw)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	s, err := env.engine.ValidateOTP(ctx, res.UserID, codeFrom(t, env.mail.next(t)))
	if err != nil {
		t.Fatalf("ValidateOTP: %v", err)
	}
	return s
}
