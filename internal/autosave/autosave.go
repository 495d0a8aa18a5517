// Package autosave persists the active buffer in the background, decoupled
// from explicit user saves. Two triggers coexist: a debounce timer rearmed
// on every edit, and a coarse periodic backstop for continuous typing.
// Both converge on the same background save.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepstack/interview-client/internal/config"
)

// Saver is the slice of the session client the controller needs.
type Saver interface {
	// Save with explicit=false: background semantics, failures are
	// non-blocking and retried on the next tick.
	Save(ctx context.Context, explicit bool) error
	// Buffer returns the active buffer text.
	Buffer() string
}

// Controller owns the autosave timers. Saves for the session's active
// question are serialized: while one is in flight, newly triggered saves
// collapse into a single follow-up instead of interleaving writes.
type Controller struct {
	saver    Saver
	debounce time.Duration
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	inFlight bool
	pending  bool
	stopped  bool
	ticker   *time.Ticker
	done     chan struct{}
}

// NewController creates an autosave controller. Call Start to begin the
// periodic backstop and wire Arm into the session client's edit hook.
func NewController(cfg *config.Config, saver Saver, log zerolog.Logger) *Controller {
	return &Controller{
		saver:    saver,
		debounce: cfg.AutosaveDebounce,
		interval: cfg.AutosaveInterval,
		log:      log.With().Str("component", "autosave").Logger(),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic backstop loop. Call in a goroutine or rely
// on the internal one; Start returns immediately.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.ticker != nil || c.stopped {
		c.mu.Unlock()
		return
	}
	c.ticker = time.NewTicker(c.interval)
	ticker := c.ticker
	c.mu.Unlock()

	go func() {
		c.log.Debug().Dur("interval", c.interval).Msg("Periodic autosave started")
		for {
			select {
			case <-ctx.Done():
				c.Stop()
				return
			case <-c.done:
				return
			case <-ticker.C:
				c.trigger(ctx)
			}
		}
	}()
}

// Arm rearms the debounce timer. Called on every edit; the save fires
// once typing pauses for the debounce window.
func (c *Controller) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.trigger(context.Background())
	})
}

// Flush saves immediately, bypassing the debounce. Used on unmount and
// before submit so no keystrokes are left unpersisted.
func (c *Controller) Flush(ctx context.Context) {
	c.trigger(ctx)
}

// Stop cancels all timers. Pending in-flight saves finish on their own.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.done)
}

// trigger runs one background save, collapsing concurrent triggers.
// Disabled entirely when the buffer is empty.
func (c *Controller) trigger(ctx context.Context) {
	if c.saver.Buffer() == "" {
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		// Collapse: one follow-up save runs after the current one; a
		// partial interleaved write is never possible.
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Controller) run(ctx context.Context) {
	for {
		if err := c.saver.Save(ctx, false); err != nil {
			// Non-blocking by contract; the session client already
			// recorded the failure. Next tick retries.
			c.log.Debug().Err(err).Msg("Background save failed")
		}

		c.mu.Lock()
		if !c.pending || c.stopped {
			c.inFlight = false
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}
