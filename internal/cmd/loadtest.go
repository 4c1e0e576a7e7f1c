package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/waitgate"
	"github.com/alicebob/miniredis/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var loadtestOpts struct {
	concurrency int
	ops         int
	ips         int
	emails      int
	redisAddr   string
	prefix      string
	strict      bool
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Hammer the signup gate and check that admissions never exceed the limits",
	Long: `Run concurrent signup evaluations from a fixed pool of IPs and emails against Redis
(or an in-process miniredis when no address is given) and report admissions per reason,
latency percentiles and whether the IP and email bounds held.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		o := loadtestOpts
		if o.concurrency <= 0 || o.ops <= 0 || o.ips <= 0 || o.emails <= 0 {
			return fmt.Errorf("concurrency, ops, ips and emails must be > 0")
		}

		addr := o.redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		out := cmd.OutOrStdout()

		var cleanup func()
		var client redis.UniversalClient
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return fmt.Errorf("failed to start miniredis: %w", err)
			}
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
			cleanup = func() {
				_ = client.Close()
				mr.Close()
			}
			fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
		} else {
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			cleanup = func() { _ = client.Close() }
			fmt.Fprintf(out, "using redis at %s\n", addr)
		}
		defer cleanup()

		cfg := waitgate.DefaultConfig()
		cfg.KeyPrefix = o.prefix
		cfg.Audit.Enabled = false
		gate, err := waitgate.New().WithConfig(cfg).WithRedis(client).Build()
		if err != nil {
			return err
		}
		defer gate.Close()

		res := runSignupPhase(cmd.Context(), gate, o.ops, o.concurrency, o.ips, o.emails)
		res.checkBounds(cfg)
		renderLoadtest(out, res, o.ips, o.emails)
		// Check and consume are separate round trips, so a burst from one actor can overshoot
		// by up to the worker count.
		if o.strict && (res.ipOverrun || res.emailOverrun) {
			return fmt.Errorf("admission bound violated")
		}
		return nil
	},
}

func init() {
	f := loadtestCmd.Flags()
	f.IntVar(&loadtestOpts.concurrency, "concurrency", 64, "number of concurrent workers")
	f.IntVar(&loadtestOpts.ops, "ops", 20000, "signup evaluations to run")
	f.IntVar(&loadtestOpts.ips, "ips", 200, "distinct client IPs")
	f.IntVar(&loadtestOpts.emails, "emails", 500, "distinct emails")
	f.StringVar(&loadtestOpts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	f.StringVar(&loadtestOpts.prefix, "prefix", "loadtest:", "key prefix isolating load test counters")
	f.BoolVar(&loadtestOpts.strict, "strict", false, "exit non-zero when any IP or email exceeds its bound")
}

type signupPhase struct {
	stats        phaseStats
	reasons      map[waitgate.ReasonCode]int64
	perIP        map[string]int64
	perEmail     map[string]int64
	maxIP        int64
	maxEmail     int64
	ipBound      int64
	emailBound   int64
	ipOverrun    bool
	emailOverrun bool
}

func runSignupPhase(ctx context.Context, gate *waitgate.Gate, ops, concurrency, ips, emails int) signupPhase {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
		reasons   = map[waitgate.ReasonCode]int64{}
		perIP     = map[string]int64{}
		perEmail  = map[string]int64{}
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				n := r.Intn(ips)
				ip := fmt.Sprintf("10.%d.%d.%d", (n>>16)&0xff, (n>>8)&0xff, n&0xff)
				email := fmt.Sprintf("user%d@example.com", r.Intn(emails))

				t0 := time.Now()
				d := gate.EvaluateSignup(ctx, ip, email)
				elapsed := time.Since(t0)
				if d.Reason == waitgate.ReasonStoreUnavailable {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, elapsed)
				reasons[d.Reason]++
				if d.Allowed {
					perIP[ip]++
					perEmail[email]++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	return signupPhase{
		stats:    computeStats(time.Since(start), latencies, failures),
		reasons:  reasons,
		perIP:    perIP,
		perEmail: perEmail,
	}
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

// windowsSpanned is the number of fixed windows a run of length total can touch.
func windowsSpanned(total, window time.Duration) int64 {
	return int64(total/window) + 2
}

// checkBounds compares the busiest IP and email against limit times the windows the run
// could have touched.
func (p *signupPhase) checkBounds(cfg waitgate.Config) {
	ipPolicy := cfg.Policies[waitgate.PolicySignupByIP]
	emailPolicy := cfg.Policies[waitgate.PolicySignupByEmail]
	p.ipBound = int64(ipPolicy.Limit) * windowsSpanned(p.stats.total, ipPolicy.Window)
	p.emailBound = int64(emailPolicy.Limit) * windowsSpanned(p.stats.total, emailPolicy.Window)

	for _, n := range p.perIP {
		p.maxIP = max(p.maxIP, n)
	}
	for _, n := range p.perEmail {
		p.maxEmail = max(p.maxEmail, n)
	}
	p.ipOverrun = p.maxIP > p.ipBound
	p.emailOverrun = p.maxEmail > p.emailBound
}

func renderLoadtest(w io.Writer, res signupPhase, ips, emails int) {
	s := res.stats
	fmt.Fprintf(w, "signup: ops=%d store_failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Reason", "Count"})
	codes := make([]string, 0, len(res.reasons))
	for code := range res.reasons {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	for _, code := range codes {
		t.AppendRow(table.Row{code, res.reasons[waitgate.ReasonCode(code)]})
	}
	t.Render()

	fmt.Fprintf(w, "max admissions per ip=%d (bound %d over %d ips), per email=%d (bound %d over %d emails)\n",
		res.maxIP, res.ipBound, ips, res.maxEmail, res.emailBound, emails)
}
