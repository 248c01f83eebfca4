package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/storage"
	"github.com/MrEthical07/authcore/storage/sqlstore"
)

type sessionState struct {
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 2000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (validate + refresh)")
		driver      = flag.String("driver", "sqlite", "database driver: sqlite or postgres")
		dsn         = flag.String("dsn", "", "database dsn; a temp sqlite file when empty")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	source := *dsn
	if source == "" {
		dir, err := os.MkdirTemp("", "authcore-loadtest")
		if err != nil {
			fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)
		source = filepath.Join(dir, "auth.db")
	}

	store, err := sqlstore.Open(ctx, sqlstore.Dialect(*driver), source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	fmt.Printf("using %s store\n", *driver)

	access, err := jwt.NewManager(jwt.Config{
		AccessTTL: 15 * time.Minute,
		Secret:    []byte(strings.Repeat("k", 32)),
		Issuer:    "authcore-loadtest",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwt manager: %v\n", err)
		os.Exit(1)
	}
	manager, err := session.NewManager(store, access, session.Config{RefreshTTL: 24 * time.Hour})
	if err != nil {
		fmt.Fprintf(os.Stderr, "session manager: %v\n", err)
		os.Exit(1)
	}

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		userID, err := seedUser(ctx, store, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed user failed: %v\n", err)
			os.Exit(1)
		}
		s, err := manager.CreateSession(ctx, userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create session failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{access: s.AccessToken, refresh: s.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		_, err := manager.ValidateAccess(states[r.Intn(len(states))].access)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		s, err := manager.Refresh(ctx, state.refresh)
		if err != nil {
			return err
		}
		state.refresh = s.RefreshToken
		state.access = s.AccessToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
}

func seedUser(ctx context.Context, store storage.Store, i int) (string, error) {
	now := time.Now()
	u := &storage.User{
		ID:              internal.NewID(),
		Email:           fmt.Sprintf("load-%d@example.com", i),
		OTPSecret:       "seed",
		IsEmailVerified: true,
		Is2FAEnabled:    true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := store.Users().Create(ctx, u); err != nil {
		return "", err
	}
	return u.ID, nil
}

// runPhase executes ops calls of op across concurrency workers.
func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
