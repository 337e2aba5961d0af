package services

import (
	"math"
	"testing"

	"github.com/alexxvives/akademo_api/model"
	"github.com/stretchr/testify/assert"
)

func videoWithPolicy(duration, lessonMultiplier, academyMultiplier *float64) *model.Video {
	return &model.Video{
		ID:              "video",
		DurationSeconds: duration,
		Lesson: model.Lesson{
			WatchMultiplier: lessonMultiplier,
			Academy:         model.Academy{DefaultWatchMultiplier: academyMultiplier},
		},
	}
}

func TestBudgetResolver_ResolveMultiplier(t *testing.T) {
	resolver := NewBudgetResolver(2)

	tests := []struct {
		name    string
		lesson  *float64
		academy *float64
		want    float64
	}{
		{name: "lesson override wins", lesson: floatPtr(1.5), academy: floatPtr(3), want: 1.5},
		{name: "academy default", academy: floatPtr(3), want: 3},
		{name: "platform default", want: 2},
		{name: "zero lesson falls through", lesson: floatPtr(0), academy: floatPtr(4), want: 4},
		{name: "negative academy falls through", academy: floatPtr(-1), want: 2},
		{name: "NaN ignored", lesson: floatPtr(math.NaN()), want: 2},
		{name: "Inf ignored", academy: floatPtr(math.Inf(1)), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := videoWithPolicy(floatPtr(100), tt.lesson, tt.academy)
			assert.Equal(t, tt.want, resolver.ResolveMultiplier(video))
		})
	}
}

func TestBudgetResolver_BudgetMillis(t *testing.T) {
	resolver := NewBudgetResolver(2)

	assert.Equal(t, int64(200_000), resolver.BudgetMillis(videoWithPolicy(floatPtr(100), nil, nil)))
	assert.Equal(t, int64(150_000), resolver.BudgetMillis(videoWithPolicy(floatPtr(100), floatPtr(1.5), floatPtr(3))))
	assert.Equal(t, int64(1_500), resolver.BudgetMillis(videoWithPolicy(floatPtr(0.5), floatPtr(3), nil)))

	assert.Equal(t, UnlimitedBudget, resolver.BudgetMillis(videoWithPolicy(nil, nil, nil)))
	assert.Equal(t, UnlimitedBudget, resolver.BudgetMillis(videoWithPolicy(floatPtr(0), nil, nil)))
	assert.Equal(t, UnlimitedBudget, resolver.BudgetMillis(videoWithPolicy(floatPtr(-10), nil, nil)))
	assert.Equal(t, UnlimitedBudget, resolver.BudgetMillis(nil))
}

func TestNewBudgetResolver_InvalidDefault(t *testing.T) {
	assert.Equal(t, 2.0, NewBudgetResolver(0).DefaultMultiplier)
	assert.Equal(t, 2.0, NewBudgetResolver(math.NaN()).DefaultMultiplier)
	assert.Equal(t, 4.0, NewBudgetResolver(4).DefaultMultiplier)
}
