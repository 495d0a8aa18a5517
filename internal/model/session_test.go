package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguredDurationMarshalsAsSeconds(t *testing.T) {
	sess := Session{
		ID:                 "s1",
		Status:             SessionStatusCreated,
		ConfiguredDuration: DurationSeconds(45 * time.Minute),
	}

	raw, err := json.Marshal(sess)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"configured_duration_seconds":2700`,
		"the wire carries plain seconds, not nanoseconds")

	var back Session
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 45*time.Minute, back.ConfiguredDuration.Duration())
}

func TestRemainingIsDerivedAndClamped(t *testing.T) {
	start := time.Now()
	sess := Session{StartTime: start, ConfiguredDuration: DurationSeconds(10 * time.Minute)}

	assert.Equal(t, 9*time.Minute, sess.Remaining(start.Add(time.Minute)))
	assert.Equal(t, time.Duration(0), sess.Remaining(start.Add(time.Hour)), "never negative after the deadline")
}

func TestStatusTransitionsAreMonotonic(t *testing.T) {
	assert.True(t, SessionStatusCreated.CanTransitionTo(SessionStatusInProgress))
	assert.True(t, SessionStatusInProgress.CanTransitionTo(SessionStatusInProgress), "idempotent updates allowed")
	assert.True(t, SessionStatusInProgress.CanTransitionTo(SessionStatusCompleted))
	assert.False(t, SessionStatusCompleted.CanTransitionTo(SessionStatusInProgress))
	assert.False(t, SessionStatusInProgress.CanTransitionTo(SessionStatusCreated))
}
