// Package ratecontrol provides the shared token-bucket rate limiter,
// per-phase concurrency bound, and adaptive backoff used by every outbound
// call the crawl engine makes.
package ratecontrol

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/familysearch/crawlengine/internal/config"
	"github.com/familysearch/crawlengine/internal/crawlerr"
	"github.com/familysearch/crawlengine/internal/logger"
)

// Phase identifies which concurrency bound a permit draws from.
type Phase int

const (
	PhasePerson Phase = iota
	PhaseRelationship
)

func (p Phase) String() string {
	if p == PhasePerson {
		return "person"
	}
	return "relationship"
}

// Controller is one shared rate-limiting instance per run. It is safe for
// concurrent use by any number of callers across both phases.
type Controller struct {
	logger *logger.Logger

	mu           sync.Mutex
	tokens       float64
	capacity     float64
	baseRPS      float64
	currentRPS   float64
	lastRefill   time.Time
	failureStreak int

	backoffBase       time.Duration
	backoffMultiplier float64
	backoffMax        time.Duration
	maxRetries        int

	personSem       chan struct{}
	relationshipSem chan struct{}

	pauseMu sync.Mutex
	paused  bool
	resume  chan struct{}

	rng *rand.Rand
}

// New builds a Controller from a ThrottleConfig.
func New(cfg config.ThrottleConfig, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.NewDefault()
	}

	capacity := cfg.RequestsPerSecond
	if float64(cfg.Burst) > capacity {
		capacity = float64(cfg.Burst)
	}
	if capacity <= 0 {
		capacity = 1
	}

	personSlots := cfg.MaxConcurrentPersonRequests
	if personSlots <= 0 {
		personSlots = 1
	}
	relSlots := cfg.MaxConcurrentRelationshipRequests
	if relSlots <= 0 {
		relSlots = 1
	}

	c := &Controller{
		logger:            log,
		tokens:            capacity,
		capacity:          capacity,
		baseRPS:           cfg.RequestsPerSecond,
		currentRPS:        cfg.RequestsPerSecond,
		lastRefill:        time.Now(),
		backoffBase:       cfg.BackoffBaseDuration(),
		backoffMultiplier: cfg.BackoffMultiplier,
		backoffMax:        cfg.BackoffMaxDuration(),
		maxRetries:        cfg.MaxRetries,
		personSem:         make(chan struct{}, personSlots),
		relationshipSem:   make(chan struct{}, relSlots),
		resume:            make(chan struct{}),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	close(c.resume) // not paused initially: channel already closed (non-blocking receive)
	return c
}

// MaxRetries returns the configured retry ceiling for a single batch.
func (c *Controller) MaxRetries() int {
	return c.maxRetries
}

// Acquire blocks until a concurrency slot for phase is free and the token
// bucket yields a token, honoring any adaptive backoff sleep and any pause
// set through Controller.Pause; the control plane's pause and stop act on the
// engine's Signal, not on the controller. It returns a release func to call
// when the caller's request completes, and a Cancelled error if ctx is done
// while waiting. The controller has no stop state of its own.
func (c *Controller) Acquire(ctx context.Context, phase Phase) (func(), error) {
	sem := c.personSem
	if phase == PhaseRelationship {
		sem = c.relationshipSem
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, crawlerr.New(crawlerr.KindCancelled, "ratecontrol.acquire", ctx.Err())
	}

	if err := c.waitForPause(ctx); err != nil {
		<-sem
		return nil, err
	}

	if err := c.waitForBackoff(ctx); err != nil {
		<-sem
		return nil, err
	}

	if err := c.waitForToken(ctx); err != nil {
		<-sem
		return nil, err
	}

	return func() { <-sem }, nil
}

// waitForPause blocks while the controller is paused.
func (c *Controller) waitForPause(ctx context.Context) error {
	for {
		c.pauseMu.Lock()
		resume := c.resume
		c.pauseMu.Unlock()

		select {
		case <-resume:
			return nil
		case <-ctx.Done():
			return crawlerr.New(crawlerr.KindCancelled, "ratecontrol.wait_for_pause", ctx.Err())
		}
	}
}

// waitForBackoff sleeps the current adaptive backoff window, if any failure
// streak is active.
func (c *Controller) waitForBackoff(ctx context.Context) error {
	c.mu.Lock()
	streak := c.failureStreak
	c.mu.Unlock()

	if streak == 0 {
		return nil
	}

	sleep := c.backoffDuration(streak)
	if sleep <= 0 {
		return nil
	}

	select {
	case <-time.After(sleep):
		return nil
	case <-ctx.Done():
		return crawlerr.New(crawlerr.KindCancelled, "ratecontrol.wait_for_backoff", ctx.Err())
	}
}

// backoffDuration computes min(backoff_max, backoff_base * multiplier^failures),
// jittered uniformly over [backoff_base, d] so every backoff — including the
// first — sleeps at least backoff_base before the next request.
func (c *Controller) backoffDuration(failures int) time.Duration {
	mult := 1.0
	for i := 0; i < failures; i++ {
		mult *= c.backoffMultiplier
	}
	d := time.Duration(float64(c.backoffBase) * mult)
	if c.backoffMax > 0 && d > c.backoffMax {
		d = c.backoffMax
	}
	if d <= 0 {
		return 0
	}
	if d <= c.backoffBase {
		return d
	}

	c.mu.Lock()
	r := c.backoffBase + time.Duration(c.rng.Int63n(int64(d-c.backoffBase)+1))
	c.mu.Unlock()
	return r
}

// waitForToken refills and draws one token from the bucket, blocking until
// one is available at the current (possibly halved) effective rate.
func (c *Controller) waitForToken(ctx context.Context) error {
	for {
		c.mu.Lock()
		c.refillLocked()
		if c.tokens >= 1 {
			c.tokens--
			c.mu.Unlock()
			return nil
		}
		wait := c.waitForNextTokenLocked()
		c.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return crawlerr.New(crawlerr.KindCancelled, "ratecontrol.wait_for_token", ctx.Err())
		}
	}
}

// refillLocked must be called with mu held.
func (c *Controller) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(c.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	c.lastRefill = now
	if c.currentRPS <= 0 {
		return
	}
	c.tokens += elapsed * c.currentRPS
	if c.tokens > c.capacity {
		c.tokens = c.capacity
	}
}

// waitForNextTokenLocked must be called with mu held.
func (c *Controller) waitForNextTokenLocked() time.Duration {
	if c.currentRPS <= 0 {
		return 100 * time.Millisecond
	}
	deficit := 1 - c.tokens
	seconds := deficit / c.currentRPS
	if seconds <= 0 {
		return time.Millisecond
	}
	return time.Duration(seconds * float64(time.Second))
}

// ReportFailure tells the controller a request was throttled (429/5xx). The
// effective rate is halved and the next permit-acquisitions incur additional
// backoff sleep.
func (c *Controller) ReportFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureStreak++
	c.currentRPS /= 2
	if c.currentRPS < 0.1 {
		c.currentRPS = 0.1
	}
	c.logger.Warnf("rate controller backing off: failure streak %d, effective rps %.3f", c.failureStreak, c.currentRPS)
}

// ReportSuccess tells the controller a request succeeded. The failure streak
// resets and the effective rate recovers geometrically toward baseRPS.
func (c *Controller) ReportSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failureStreak == 0 && c.currentRPS >= c.baseRPS {
		return
	}
	c.failureStreak = 0
	c.currentRPS *= 1.5
	if c.currentRPS > c.baseRPS {
		c.currentRPS = c.baseRPS
	}
}

// Pause blocks all future Acquire calls until Resume is called.
func (c *Controller) Pause() {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.resume = make(chan struct{})
}

// Resume releases any Acquire calls blocked by Pause.
func (c *Controller) Resume() {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resume)
}

// IsPaused reports whether the controller is currently paused.
func (c *Controller) IsPaused() bool {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	return c.paused
}

// EffectiveRPS returns the current (possibly backed-off) request rate, for
// metrics reporting.
func (c *Controller) EffectiveRPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRPS
}
