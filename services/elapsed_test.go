package services

import (
	"testing"
	"time"

	"github.com/alexxvives/akademo_api/shared"
	"github.com/stretchr/testify/assert"
)

func TestElapsedPolicy_Resolve(t *testing.T) {
	policy := DefaultElapsedPolicy()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		at := now.Add(-d)
		return &at
	}

	tests := []struct {
		name       string
		client     float64
		lastTickAt *time.Time
		lastFinal  bool
		wantMs     int64
		wantSource string
	}{
		{name: "first tick trusts client", client: 5, wantMs: 5000, wantSource: shared.ElapsedSourceClientReported},
		{name: "first tick capped at flush x max rate", client: 60, wantMs: 10_000, wantSource: shared.ElapsedSourceClientReported},
		{name: "observed gap within bounds", client: 5, lastTickAt: ago(5 * time.Second), wantMs: 5000, wantSource: shared.ElapsedSourceServerObserved},
		{name: "inflated report clamped to gap x max rate", client: 30, lastTickAt: ago(6 * time.Second), wantMs: 12_000, wantSource: shared.ElapsedSourceServerObserved},
		{name: "under report lifted to gap x min rate", client: 1, lastTickAt: ago(10 * time.Second), wantMs: 5000, wantSource: shared.ElapsedSourceServerObserved},
		{name: "dropped tick lets floor exceed the report", client: 5, lastTickAt: ago(14 * time.Second), wantMs: 7000, wantSource: shared.ElapsedSourceServerObserved},
		{name: "simultaneous ticks keep flush allowance", client: 5, lastTickAt: ago(0), wantMs: 5000, wantSource: shared.ElapsedSourceServerObserved},
		{name: "previous tick was final", client: 5, lastTickAt: ago(2 * time.Second), lastFinal: true, wantMs: 5000, wantSource: shared.ElapsedSourceClientReported},
		{name: "observation too old", client: 5, lastTickAt: ago(time.Minute), wantMs: 5000, wantSource: shared.ElapsedSourceClientReported},
		{name: "zero elapsed", client: 0, lastTickAt: ago(5 * time.Second), wantMs: 0, wantSource: shared.ElapsedSourceClientReported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Resolve(tt.client, tt.lastTickAt, tt.lastFinal, now)
			assert.Equal(t, tt.wantMs, got.CreditedMs)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestLoadElapsedPolicy(t *testing.T) {
	t.Setenv("TICK_OBSERVATION_WINDOW", "20s")
	t.Setenv("MAX_PLAYBACK_RATE", "3")
	t.Setenv("MIN_PLAYBACK_RATE", "5")

	policy := LoadElapsedPolicy()
	assert.Equal(t, 20*time.Second, policy.ObservationWindow)
	assert.Equal(t, 5*time.Second, policy.FlushInterval)
	assert.Equal(t, 3.0, policy.MaxRate)
	assert.Equal(t, 0.0, policy.MinRate, "a minimum above the maximum is discarded")
}
