package repositories

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repositories_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Academy{}, &model.Lesson{}, &model.Video{}, &model.User{}, &model.DeviceSession{}, &model.PlayState{}))
	return db
}

func TestDeviceSessionRepository_ActivateExclusive(t *testing.T) {
	repo := NewDeviceSessionRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()

	displaced, err := repo.ActivateExclusive(ctx, &model.DeviceSession{UserID: "u1", Fingerprint: "fp-a", LastSeenAt: now})
	require.NoError(t, err)
	assert.Empty(t, displaced)

	displaced, err = repo.ActivateExclusive(ctx, &model.DeviceSession{UserID: "u1", Fingerprint: "fp-b", Browser: "Firefox", LastSeenAt: now})
	require.NoError(t, err)
	require.Len(t, displaced, 1)
	assert.Equal(t, "fp-a", displaced[0].Fingerprint)

	// another user is independent
	_, err = repo.ActivateExclusive(ctx, &model.DeviceSession{UserID: "u2", Fingerprint: "fp-a", LastSeenAt: now})
	require.NoError(t, err)

	active, err := repo.GetActiveSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fp-b", active[0].Fingerprint)

	ok, err := repo.IsActive(ctx, "u2", "fp-a")
	require.NoError(t, err)
	assert.True(t, ok)

	// re-activating an old fingerprint reuses its row
	_, err = repo.ActivateExclusive(ctx, &model.DeviceSession{UserID: "u1", Fingerprint: "fp-a", Browser: "Chrome", LastSeenAt: now.Add(time.Minute)})
	require.NoError(t, err)

	session, err := repo.GetSession(ctx, "u1", "fp-a")
	require.NoError(t, err)
	assert.True(t, session.IsActive)
	assert.Equal(t, "Chrome", session.Browser)

	var rows int64
	require.NoError(t, repo.DB().Model(&model.DeviceSession{}).Where("user_id = ?", "u1").Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	// every check-in of a user takes the next sequence number
	assert.Equal(t, int64(3), session.ActivationSeq)
	other, err := repo.GetSession(ctx, "u2", "fp-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other.ActivationSeq)

	_, err = repo.GetSession(ctx, "u1", "fp-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPlayStateRepository_ApplyTick(t *testing.T) {
	repo := NewPlayStateRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()
	credit := func(ms int64) CreditFunc {
		return func(*model.PlayState) int64 { return ms }
	}

	out, err := repo.ApplyTick(ctx, TickMutation{VideoID: "v", StudentID: "s", PositionMs: 1000, BudgetMs: 10_000, Now: now}, credit(6000))
	require.NoError(t, err)
	assert.Equal(t, int64(6000), out.State.TotalWatchTimeMs)
	assert.Equal(t, shared.PlayStatusActive, out.State.Status)
	require.NotNil(t, out.State.SessionStartTime)
	require.NotNil(t, out.State.LastTickAt)

	out, err = repo.ApplyTick(ctx, TickMutation{VideoID: "v", StudentID: "s", PositionMs: 2000, Final: true, BudgetMs: 10_000, Now: now.Add(time.Second)}, credit(4000))
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), out.State.TotalWatchTimeMs)
	assert.Equal(t, shared.PlayStatusBlocked, out.State.Status)
	assert.True(t, out.State.LastTickFinal)
	assert.True(t, now.Equal(*out.State.SessionStartTime), "session start is kept")

	called := false
	out, err = repo.ApplyTick(ctx, TickMutation{VideoID: "v", StudentID: "s", BudgetMs: 10_000, Now: now.Add(2 * time.Second)},
		func(*model.PlayState) int64 { called = true; return 1000 })
	require.NoError(t, err)
	assert.True(t, out.AlreadyBlocked)
	assert.False(t, called)
	assert.Equal(t, int64(10_000), out.State.TotalWatchTimeMs)
}

func TestPlayStateRepository_UnlimitedBudgetNeverBlocks(t *testing.T) {
	repo := NewPlayStateRepository(setupDB(t))
	ctx := context.Background()

	out, err := repo.ApplyTick(ctx, TickMutation{VideoID: "v", StudentID: "s", BudgetMs: -1, Now: time.Now()},
		func(*model.PlayState) int64 { return 1 << 40 })
	require.NoError(t, err)
	assert.Equal(t, shared.PlayStatusActive, out.State.Status)
}

func TestPlayStateRepository_ResetAndPosition(t *testing.T) {
	repo := NewPlayStateRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()

	_, err := repo.ApplyTick(ctx, TickMutation{VideoID: "v", StudentID: "s", BudgetMs: 100, Now: now},
		func(*model.PlayState) int64 { return 500 })
	require.NoError(t, err)

	state, err := repo.Reset(ctx, "v", "s", now)
	require.NoError(t, err)
	assert.Zero(t, state.TotalWatchTimeMs)
	assert.Equal(t, shared.PlayStatusActive, state.Status)
	assert.Nil(t, state.SessionStartTime)
	assert.Nil(t, state.LastTickAt)

	state, err = repo.RecordPosition(ctx, "v", "s", 7000, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), state.LastPositionMs)
	assert.Zero(t, state.TotalWatchTimeMs)

	// resetting a pair that never played creates it
	state, err = repo.Reset(ctx, "v", "new", now)
	require.NoError(t, err)
	assert.Equal(t, "new", state.StudentID)
}

func TestVideoRepository_GetVideoWithPolicy(t *testing.T) {
	repo := NewVideoRepository(setupDB(t))
	ctx := context.Background()
	multiplier := 3.0
	duration := 60.0

	require.NoError(t, repo.CreateAcademy(ctx, &model.Academy{ID: "a", Name: "A", DefaultWatchMultiplier: &multiplier}))
	require.NoError(t, repo.CreateLesson(ctx, &model.Lesson{ID: "l", AcademyID: "a", Title: "L"}))
	require.NoError(t, repo.CreateVideo(ctx, &model.Video{ID: "v", LessonID: "l", DurationSeconds: &duration}))

	video, err := repo.GetVideoWithPolicy(ctx, "v")
	require.NoError(t, err)
	assert.Nil(t, video.Lesson.WatchMultiplier)
	require.NotNil(t, video.Lesson.Academy.DefaultWatchMultiplier)
	assert.Equal(t, 3.0, *video.Lesson.Academy.DefaultWatchMultiplier)

	exists, err := repo.VideoExists(ctx, "v")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.GetVideoWithPolicy(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &model.User{ID: "u", Email: "u@example.com", Role: shared.RoleStudent}))

	user, err := repo.GetUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, shared.RoleStudent, user.Role)

	exists, err := repo.UserExists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}
