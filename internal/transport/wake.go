package transport

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// waker runs the cold-start wake sequence: short health probes with
// increasing delays, bounded by a hard wall-clock budget. Every caller
// that classifies a failure as cold-start-like funnels through here;
// concurrent callers share one in-flight sequence via singleflight.
type waker struct {
	client       *Client
	budget       time.Duration
	probeTimeout time.Duration
	initialDelay time.Duration
	group        singleflight.Group
}

func newWaker(client *Client, budget, probeTimeout, initialDelay time.Duration) *waker {
	return &waker{
		client:       client,
		budget:       budget,
		probeTimeout: probeTimeout,
		initialDelay: initialDelay,
	}
}

// Wake blocks until the backend answers a health probe, the budget is
// exhausted, or ctx is canceled. Budget exhaustion returns a transient
// error with code ErrWakeExhausted — the caller surfaces failure instead
// of retrying forever.
func (w *waker) Wake(ctx context.Context) error {
	_, err, _ := w.group.Do("wake", func() (any, error) {
		return nil, w.run(ctx)
	})
	return err
}

func (w *waker) run(ctx context.Context) error {
	deadline := time.Now().Add(w.budget)
	delay := w.initialDelay
	attempt := 0

	for {
		attempt++
		probeCtx, cancel := context.WithTimeout(ctx, w.probeTimeout)
		err := w.client.Health(probeCtx)
		cancel()
		if err == nil {
			if attempt > 1 {
				w.client.log.Info().Int("attempts", attempt).Msg("Backend awake")
			}
			return nil
		}
		if !IsTransient(err) {
			// A definitive answer (auth, rejection) means the backend is
			// up; the original call's failure stands on its own.
			return nil
		}

		if time.Now().Add(delay).After(deadline) {
			w.client.log.Warn().
				Int("attempts", attempt).
				Dur("budget", w.budget).
				Msg("Wake sequence exhausted")
			return &Error{Kind: KindTransient, Code: ErrWakeExhausted,
				Message: "backend did not wake within the retry budget"}
		}

		w.client.log.Debug().
			Int("attempt", attempt).
			Dur("next_delay", delay).
			Msg("Backend still waking, retrying")

		select {
		case <-ctx.Done():
			return classifyNetErr(ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
}
