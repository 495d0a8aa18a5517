package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/interview-client/internal/logger"
)

func TestWakeSucceedsAfterColdStart(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"status": "ok"}, nil)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.WakeBudget = 5 * time.Second
	c := NewClient(cfg, NewStaticTokenSource("tok"), logger.Nop())

	require.NoError(t, c.WakeBackend(context.Background()))
	assert.Equal(t, int32(3), hits.Load())
}

func TestWakeGivesUpWithinBudget(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.WakeBudget = 100 * time.Millisecond
	cfg.WakeInitialDelay = 30 * time.Millisecond
	c := NewClient(cfg, NewStaticTokenSource("tok"), logger.Nop())

	start := time.Now()
	err := c.WakeBackend(context.Background())
	require.Error(t, err)

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrWakeExhausted, te.Code)
	assert.Less(t, time.Since(start), 2*time.Second, "hard wall-clock budget, not unbounded retries")
}

func TestConcurrentWakesShareOneSequence(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, map[string]string{"status": "ok"}, nil)
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL), NewStaticTokenSource("tok"), logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.WakeBackend(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load(), "concurrent callers share a single in-flight wake")
}

func TestWakeStopsOnDefinitiveAnswer(t *testing.T) {
	// A 401 from the health probe means the backend is up; the wake
	// sequence ends without burning the budget.
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL), NewStaticTokenSource("tok"), logger.Nop())
	require.NoError(t, c.WakeBackend(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}
