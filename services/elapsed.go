package services

import (
	"math"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
)

// ElapsedPolicy turns a client reported elapsed value into the amount the
// server is willing to credit.
//
// When the previous tick of the same pair is recent and was not a final
// flush, the server measured the wall-clock gap itself and the client value
// is clamped to [gap x MinRate, max(gap, FlushInterval) x MaxRate]. The
// upper bound uses at least one flush interval so that two tabs ticking at
// the same instant are both credited. Without a usable observation the client
// value is only capped at FlushInterval x MaxRate.
type ElapsedPolicy struct {
	ObservationWindow time.Duration
	FlushInterval     time.Duration
	MinRate           float64
	MaxRate           float64
}

type ElapsedDecision struct {
	CreditedMs int64
	Source     string
}

func DefaultElapsedPolicy() ElapsedPolicy {
	return ElapsedPolicy{
		ObservationWindow: 15 * time.Second,
		FlushInterval:     5 * time.Second,
		MinRate:           0.5,
		MaxRate:           2.0,
	}
}

func LoadElapsedPolicy() ElapsedPolicy {
	p := DefaultElapsedPolicy()
	p.ObservationWindow = shared.GetEnvDuration("TICK_OBSERVATION_WINDOW", p.ObservationWindow)
	p.FlushInterval = shared.GetEnvDuration("TICK_FLUSH_INTERVAL", p.FlushInterval)
	p.MinRate = shared.GetEnvFloat("MIN_PLAYBACK_RATE", p.MinRate)
	p.MaxRate = shared.GetEnvFloat("MAX_PLAYBACK_RATE", p.MaxRate)
	if p.MaxRate <= 0 {
		p.MaxRate = DefaultElapsedPolicy().MaxRate
	}
	if p.MinRate < 0 || p.MinRate > p.MaxRate {
		p.MinRate = 0
	}
	return p
}

// Resolve decides the credit for one tick. lastTickAt and lastFinal come from
// the stored row before this tick is applied.
func (p ElapsedPolicy) Resolve(clientSeconds float64, lastTickAt *time.Time, lastFinal bool, now time.Time) ElapsedDecision {
	clientMs := float64(dto.SecondsToMillis(clientSeconds))
	if clientMs <= 0 {
		return ElapsedDecision{Source: shared.ElapsedSourceClientReported}
	}

	flushMs := float64(p.FlushInterval.Milliseconds())

	if lastTickAt != nil && !lastFinal {
		gap := now.Sub(*lastTickAt)
		if gap < 0 {
			gap = 0
		}
		if gap <= p.ObservationWindow {
			gapMs := float64(gap.Milliseconds())
			// The floor can credit more than the client reported when an
			// earlier non-final tick never arrived, e.g. a 14s gap with a 5s
			// report credits 7s at MinRate 0.5. It never exceeds the gap.
			floor := gapMs * p.MinRate
			ceiling := math.Max(gapMs, flushMs) * p.MaxRate
			credited := math.Min(math.Max(clientMs, floor), ceiling)
			return ElapsedDecision{
				CreditedMs: int64(math.Round(credited)),
				Source:     shared.ElapsedSourceServerObserved,
			}
		}
	}

	return ElapsedDecision{
		CreditedMs: int64(math.Round(math.Min(clientMs, flushMs*p.MaxRate))),
		Source:     shared.ElapsedSourceClientReported,
	}
}
