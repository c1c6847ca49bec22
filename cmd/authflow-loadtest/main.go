// Command authflow-loadtest drives concurrent sign-in, validate and refresh
// traffic through an in-process engine and prints latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loadPassword = "Loadtest123!"

type account struct {
	email string

	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		users       = flag.Int("users", 200, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, AUTHFLOW_REDIS_ADDR or miniredis is used")
		memory      = flag.Uint("argon2-memory", 8*1024, "argon2id memory in KiB")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		logger.Fatal("users, concurrency, and ops must be > 0")
	}

	cfg, err := authflow.LoadConfigFromEnv()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	cfg.Password.Memory = uint32(*memory)
	cfg.Password.Time = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	addr := *redisAddr
	if addr == "" {
		addr = cfg.Redis.Addr
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal("start miniredis", zap.Error(err))
		}
		defer mr.Close()
		addr = mr.Addr()
		logger.Info("using miniredis", zap.String("addr", addr))
	} else {
		logger.Info("using redis", zap.String("addr", addr))
	}
	cfg.Redis.Addr = ""

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer func() { _ = rdb.Close() }()

	engine, err := authflow.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}
	defer engine.Close()

	ctx := context.Background()
	accounts := make([]*account, *users)
	start := time.Now()
	for i := range accounts {
		email := fmt.Sprintf("load-%d@example.com", i)
		res, err := engine.SignUp(ctx, authflow.SignUpRequest{
			Email:       email,
			Password:    loadPassword,
			AcceptTerms: true,
		})
		if err != nil {
			logger.Fatal("seed account", zap.String("email", email), zap.Error(err))
		}
		accounts[i] = &account{email: email, access: res.Session.AccessToken, refresh: res.Session.RefreshToken}
	}
	logger.Info("seeded accounts", zap.Int("count", len(accounts)), zap.Duration("took", time.Since(start).Round(time.Millisecond)))

	signIn := runPhase(accounts, *ops, *concurrency, func(a *account) error {
		_, err := engine.SignIn(ctx, authflow.SignInRequest{Email: a.email, Password: loadPassword})
		return err
	})
	validate := runPhase(accounts, *ops, *concurrency, func(a *account) error {
		a.mu.Lock()
		tok := a.access
		a.mu.Unlock()
		ok, err := engine.ValidateSession(ctx, tok)
		if err == nil && !ok {
			err = authflow.ErrNotAuthenticated
		}
		return err
	})
	refresh := runPhase(accounts, *ops, *concurrency, func(a *account) error {
		a.mu.Lock()
		defer a.mu.Unlock()
		res, err := engine.RefreshSession(ctx, a.refresh)
		if err != nil {
			return err
		}
		a.access, a.refresh = res.Session.AccessToken, res.Session.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("signin", signIn)
	printStats("validate", validate)
	printStats("refresh", refresh)

	snap := engine.MetricsSnapshot()
	fmt.Printf("signin latency buckets (5ms..+Inf): %v\n", snap.Histograms[authflow.MetricSignInLatency])
}

func runPhase(accounts []*account, ops, concurrency int, op func(*account) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				a := accounts[r.Intn(len(accounts))]
				t0 := time.Now()
				err := op(a)
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
	return computeStats(time.Since(start), latencies, failures)
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
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
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
