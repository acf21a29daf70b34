package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pool-level sentinel errors.
var (
	// ErrAllKeysExhausted means no key is currently eligible to make a call.
	ErrAllKeysExhausted = errors.New("llm: all api keys exhausted")
	// ErrLLMTimeout means the call was abandoned because the context expired.
	ErrLLMTimeout = errors.New("llm: request timed out")
	// ErrNoKeys means the pool was constructed with an empty key list.
	ErrNoKeys = errors.New("llm: no api keys configured")
)

// KeyState is the lifecycle state of a pooled API key.
type KeyState int

const (
	// StateActive — eligible for selection.
	StateActive KeyState = iota
	// StateRateLimited — provider returned 429; parked until cooldown elapses.
	StateRateLimited
	// StateCooldown — local per-minute budget spent or transient provider
	// error; recovers once the backoff elapses and the window refills.
	StateCooldown
	// StateDisabled — auth failure or repeated hard failures; never selected again.
	StateDisabled
)

// String implements fmt.Stringer for logging and snapshots.
func (s KeyState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRateLimited:
		return "rate_limited"
	case StateCooldown:
		return "cooldown"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// maxCooldown caps the doubling backoff applied after consecutive 429s.
const maxCooldown = 15 * time.Minute

// keyEntry tracks one API key's state and usage counters.
type keyEntry struct {
	key     string
	state   KeyState
	limiter *rate.Limiter

	cooldownUntil         time.Time
	consecutiveRateLimits int
	hardFailures          int

	requests  int64
	successes int64
	failures  int64
	lastUsed  time.Time
}

// KeyUsage is a read-only snapshot of one key's state, safe to expose over
// the stats endpoint. The key itself is masked.
type KeyUsage struct {
	Key           string    `json:"key"`
	State         string    `json:"state"`
	Requests      int64     `json:"requests"`
	Successes     int64     `json:"successes"`
	Failures      int64     `json:"failures"`
	CooldownUntil time.Time `json:"cooldown_until,omitzero"`
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	Keys []string
	// RequestsPerMinute is the per-key budget (Groq free tier: 30).
	RequestsPerMinute int
	// MaxAttempts bounds key rotations for a single completion.
	MaxAttempts int
	// MaxHardFailures disables a key after this many consecutive 5xx/transport errors.
	MaxHardFailures int
	// BaseCooldown is the initial park duration after a 429 or a transient
	// server error. Doubles per consecutive error on the same key, capped
	// at maxCooldown.
	BaseCooldown time.Duration
}

// Pool rotates chat completions across multiple API keys. Selection is
// round-robin over active keys only; keys that hit the provider rate limit
// are parked and recover automatically once their cooldown elapses.
//
// The mutex guards key state transitions only. It is never held across the
// network call, so slow completions on one key do not serialize the pool.
type Pool struct {
	client ChatClient

	mu   sync.Mutex
	keys []*keyEntry
	next int

	maxAttempts     int
	maxHardFailures int
	baseCooldown    time.Duration

	// now is swapped in tests to control cooldown expiry.
	now func() time.Time
}

// NewPool builds a Pool over the configured keys.
func NewPool(client ChatClient, cfg PoolConfig) (*Pool, error) {
	if len(cfg.Keys) == 0 {
		return nil, ErrNoKeys
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2 * len(cfg.Keys)
	}
	maxHard := cfg.MaxHardFailures
	if maxHard <= 0 {
		maxHard = 5
	}
	baseCooldown := cfg.BaseCooldown
	if baseCooldown <= 0 {
		baseCooldown = time.Minute
	}

	entries := make([]*keyEntry, len(cfg.Keys))
	for i, k := range cfg.Keys {
		entries[i] = &keyEntry{
			key:     k,
			state:   StateActive,
			limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		}
	}
	return &Pool{
		client:          client,
		keys:            entries,
		maxAttempts:     maxAttempts,
		maxHardFailures: maxHard,
		baseCooldown:    baseCooldown,
		now:             time.Now,
	}, nil
}

// ChatCompletion selects an active key and performs the completion,
// rotating to the next key on rate-limit or transient failure. Returns
// ErrAllKeysExhausted when no key is eligible, and ErrLLMTimeout when the
// context expires mid-call.
func (p *Pool) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		entry, err := p.acquire()
		if err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return nil, err
		}

		// Network call happens outside the lock.
		resp, callErr := p.client.ChatCompletion(ctx, entry.key, req)
		if callErr == nil {
			p.recordSuccess(entry)
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			p.recordFailure(entry, callErr)
			return nil, fmt.Errorf("%w: %v", ErrLLMTimeout, callErr)
		}

		p.recordFailure(entry, callErr)
		lastErr = callErr
	}
	return nil, fmt.Errorf("llm: %d attempts failed: %w", p.maxAttempts, lastErr)
}

// acquire picks the next active key round-robin and spends one token of its
// per-minute budget. Keys whose cooldown has elapsed recover to active here.
func (p *Pool) acquire() (*keyEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := len(p.keys)
	for i := 0; i < n; i++ {
		entry := p.keys[(p.next+i)%n]
		if p.effectiveState(entry, now) != StateActive {
			continue
		}
		if !entry.limiter.Allow() {
			// Per-minute budget spent: transient, window slides it back.
			entry.state = StateCooldown
			continue
		}
		entry.state = StateActive
		entry.requests++
		entry.lastUsed = now
		p.next = (p.next+i)%n + 1
		return entry, nil
	}
	return nil, ErrAllKeysExhausted
}

// effectiveState resolves lazy recoveries: rate-limited keys whose cooldown
// elapsed and cooldown keys whose window refilled are active again.
func (p *Pool) effectiveState(e *keyEntry, now time.Time) KeyState {
	switch e.state {
	case StateDisabled:
		return StateDisabled
	case StateRateLimited:
		if now.Before(e.cooldownUntil) {
			return StateRateLimited
		}
		e.state = StateActive
		return StateActive
	case StateCooldown:
		if now.Before(e.cooldownUntil) {
			return StateCooldown
		}
		if e.limiter.Tokens() < 1 {
			return StateCooldown
		}
		e.state = StateActive
		return StateActive
	default:
		return StateActive
	}
}

func (p *Pool) recordSuccess(e *keyEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.successes++
	e.consecutiveRateLimits = 0
	e.hardFailures = 0
}

// recordFailure applies the state transition matching the error class:
// 429 parks the key rate-limited with doubling cooldown, auth failure
// disables it, any other transient error parks it in cooldown with the
// same doubling backoff until the hard-failure limit disables it.
func (p *Pool) recordFailure(e *keyEntry, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.failures++

	switch {
	case errors.Is(err, ErrRateLimited):
		e.consecutiveRateLimits++
		e.state = StateRateLimited
		e.cooldownUntil = p.now().Add(p.backoff(e.consecutiveRateLimits))
	case errors.Is(err, ErrAuthFailed):
		e.state = StateDisabled
	default:
		e.hardFailures++
		if e.hardFailures >= p.maxHardFailures {
			e.state = StateDisabled
			return
		}
		e.state = StateCooldown
		e.cooldownUntil = p.now().Add(p.backoff(e.hardFailures))
	}
}

// backoff doubles the base cooldown per consecutive error, capped.
func (p *Pool) backoff(consecutive int) time.Duration {
	cooldown := p.baseCooldown << (consecutive - 1)
	if cooldown > maxCooldown || cooldown <= 0 {
		cooldown = maxCooldown
	}
	return cooldown
}

// UsageSnapshot returns per-key usage counters with keys masked.
func (p *Pool) UsageSnapshot() []KeyUsage {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]KeyUsage, len(p.keys))
	for i, e := range p.keys {
		out[i] = KeyUsage{
			Key:       maskKey(e.key),
			State:     p.effectiveState(e, now).String(),
			Requests:  e.requests,
			Successes: e.successes,
			Failures:  e.failures,
		}
		if e.state == StateRateLimited || e.state == StateCooldown {
			out[i].CooldownUntil = e.cooldownUntil
		}
	}
	return out
}

// ActiveKeys reports how many keys are currently eligible for selection.
func (p *Pool) ActiveKeys() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	count := 0
	for _, e := range p.keys {
		if p.effectiveState(e, now) == StateActive {
			count++
		}
	}
	return count
}

// maskKey keeps only the last four characters of an API key.
func maskKey(k string) string {
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}
