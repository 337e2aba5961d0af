package services

import (
	"math"

	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/shared"
)

// UnlimitedBudget marks a video whose watch time is never capped
const UnlimitedBudget int64 = -1

// BudgetResolver prices a video in watch time. It has no notion of who is
// watching; callers check shared.IsBudgetExempt first.
type BudgetResolver struct {
	DefaultMultiplier float64
}

func NewBudgetResolver(defaultMultiplier float64) BudgetResolver {
	if !validMultiplier(&defaultMultiplier) {
		defaultMultiplier = shared.DefaultWatchMultiplier
	}
	return BudgetResolver{DefaultMultiplier: defaultMultiplier}
}

// ResolveMultiplier returns the first usable value of the lesson override,
// the academy default and the platform default.
func (r BudgetResolver) ResolveMultiplier(video *model.Video) float64 {
	if video != nil {
		if validMultiplier(video.Lesson.WatchMultiplier) {
			return *video.Lesson.WatchMultiplier
		}
		if validMultiplier(video.Lesson.Academy.DefaultWatchMultiplier) {
			return *video.Lesson.Academy.DefaultWatchMultiplier
		}
	}
	if r.DefaultMultiplier > 0 {
		return r.DefaultMultiplier
	}
	return shared.DefaultWatchMultiplier
}

// BudgetMillis returns duration x multiplier in milliseconds, or
// UnlimitedBudget when the duration is unknown or not positive.
func (r BudgetResolver) BudgetMillis(video *model.Video) int64 {
	if video == nil || video.DurationSeconds == nil {
		return UnlimitedBudget
	}
	duration := *video.DurationSeconds
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return UnlimitedBudget
	}
	return int64(math.Round(duration * r.ResolveMultiplier(video) * 1000))
}

// validMultiplier treats zero and negative values like null; a zero
// multiplier would block every student before the first second.
func validMultiplier(m *float64) bool {
	return m != nil && *m > 0 && !math.IsNaN(*m) && !math.IsInf(*m, 0)
}
