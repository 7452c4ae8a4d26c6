package limiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Outbound throttles image fetches per remote host. In-process slots bound
// concurrency; a Redis-backed cooldown with exponential backoff keeps every
// replica off a host that started refusing us.
type Outbound struct {
	rdb          *redis.Client
	maxInflight  int
	baseCooldown time.Duration
	maxCooldown  time.Duration
	mu           sync.Mutex
	sem          map[string]chan struct{}
}

type Options struct {
	RedisURL     string
	MaxInflight  int
	BaseCooldown time.Duration
	MaxCooldown  time.Duration
}

func New(opts Options) (*Outbound, error) {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 4
	}
	if opts.BaseCooldown <= 0 {
		opts.BaseCooldown = 30 * time.Second
	}
	if opts.MaxCooldown <= 0 {
		opts.MaxCooldown = 5 * time.Minute
	}
	ro, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(ro)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Outbound{
		rdb:          c,
		maxInflight:  opts.MaxInflight,
		baseCooldown: opts.BaseCooldown,
		maxCooldown:  opts.MaxCooldown,
		sem:          map[string]chan struct{}{},
	}, nil
}

func (l *Outbound) key(host string) string {
	return fmt.Sprintf("fetch_cd:%s", strings.ToLower(host))
}

// InCooldown returns true while the host's cooldown is active.
func (l *Outbound) InCooldown(ctx context.Context, host string) bool {
	ts, err := l.rdb.Get(ctx, l.key(host)).Int64()
	if err != nil {
		return false
	}
	return time.Now().Unix() < ts
}

// Cooldown sets/extends the host cooldown with exponential backoff per attempt.
// The attempt counter expires on its own so a host that went quiet does not
// keep its escalated backoff forever.
func (l *Outbound) Cooldown(ctx context.Context, host string) {
	k := l.key(host)
	attempts, _ := l.rdb.Incr(ctx, k+":attempts").Result()
	d := l.backoff(attempts)
	until := time.Now().Add(d).Unix()
	_ = l.rdb.Set(ctx, k, until, d).Err()
	_ = l.rdb.Expire(ctx, k+":attempts", 24*time.Hour).Err()
}

// backoff doubles the base cooldown per attempt up to the configured cap. The
// shift is clamped so a long-failing host cannot overflow the duration.
func (l *Outbound) backoff(attempts int64) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	shift := attempts - 1
	if shift > 16 {
		shift = 16
	}
	d := l.baseCooldown << shift
	if d > l.maxCooldown || d <= 0 {
		d = l.maxCooldown
	}
	return d
}

// Reset clears the cooldown after a successful fetch.
func (l *Outbound) Reset(ctx context.Context, host string) {
	k := l.key(host)
	_ = l.rdb.Del(ctx, k, k+":attempts").Err()
}

// Acquire tries to reserve a local in-process slot for the host.
// Returns a release function and true if allowed; otherwise nil,false.
func (l *Outbound) Acquire(host string) (func(), bool) {
	key := strings.ToLower(host)
	l.mu.Lock()
	ch, ok := l.sem[key]
	if !ok {
		ch = make(chan struct{}, l.maxInflight)
		l.sem[key] = ch
	}
	l.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return func() {}, false
	}
}

func (l *Outbound) Close() error { return l.rdb.Close() }
