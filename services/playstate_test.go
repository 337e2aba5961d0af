package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	student = dto.Identity{UserID: "student-1", Role: shared.RoleStudent}
	teacher = dto.Identity{UserID: "teacher-1", Role: shared.RoleTeacher}
)

// setupPlayStateService seeds a 100s video with a 2x budget and one student
func setupPlayStateService(t *testing.T) (*PlayStateService, *gorm.DB, *fakeClock) {
	t.Helper()
	db := newTestDB(t)
	seedVideo(t, db, "video-1", floatPtr(100), nil, nil)
	seedUser(t, db, student.UserID, student.Role)
	seedUser(t, db, teacher.UserID, teacher.Role)

	clock := newFakeClock()
	svc := NewPlayStateService(db, NewBudgetResolver(2), DefaultElapsedPolicy())
	svc.SetClock(clock.Now)
	return svc, db, clock
}

func tick(t *testing.T, svc *PlayStateService, caller dto.Identity, elapsed float64) *dto.TickResponse {
	t.Helper()
	resp, err := svc.ApplyTick(context.Background(), caller, "video-1", dto.TickRequest{
		ElapsedSeconds:         elapsed,
		CurrentPositionSeconds: 42,
		PlaybackRate:           1,
	})
	require.NoError(t, err)
	return resp
}

func TestPlayStateService_GetOrInitCreatesOneRow(t *testing.T) {
	svc, db, _ := setupPlayStateService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetOrInit(ctx, student, "video-1", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := svc.GetOrInit(ctx, student, "video-1", "")
	require.NoError(t, err)
	assert.Equal(t, shared.PlayStatusActive, state.Status)
	assert.Zero(t, state.TotalWatchTimeSeconds)
	assert.Nil(t, state.SessionStartTime)
	require.NotNil(t, state.BudgetSeconds)
	assert.Equal(t, 200.0, *state.BudgetSeconds)

	var rows int64
	require.NoError(t, db.Model(&model.PlayState{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestPlayStateService_BlocksExactlyAtBudget(t *testing.T) {
	svc, _, clock := setupPlayStateService(t)

	for i := 0; i < 39; i++ {
		resp := tick(t, svc, student, 5)
		assert.Equal(t, 5.0, resp.CreditedSeconds)
		clock.Advance(5 * time.Second)
	}

	resp := tick(t, svc, student, 4)
	assert.Equal(t, 199.0, resp.TotalWatchTimeSeconds)
	assert.Equal(t, shared.PlayStatusActive, resp.Status)
	require.NotNil(t, resp.RemainingWatchSeconds)
	assert.Equal(t, 1.0, *resp.RemainingWatchSeconds)

	clock.Advance(time.Second)
	resp = tick(t, svc, student, 1)
	assert.Equal(t, 200.0, resp.TotalWatchTimeSeconds)
	assert.Equal(t, shared.PlayStatusBlocked, resp.Status)
	assert.Equal(t, 0.0, *resp.RemainingWatchSeconds)
	assert.Equal(t, shared.ElapsedSourceServerObserved, resp.ElapsedSource)

	// BLOCKED is sticky and further ticks credit nothing
	clock.Advance(5 * time.Second)
	resp = tick(t, svc, student, 5)
	assert.Equal(t, shared.PlayStatusBlocked, resp.Status)
	assert.Equal(t, 200.0, resp.TotalWatchTimeSeconds)
	assert.Zero(t, resp.CreditedSeconds)
}

func TestPlayStateService_SessionStartTimeSetOnce(t *testing.T) {
	svc, _, clock := setupPlayStateService(t)
	start := clock.Now()

	tick(t, svc, student, 5)
	clock.Advance(5 * time.Second)
	resp := tick(t, svc, student, 5)

	require.NotNil(t, resp.SessionStartTime)
	assert.True(t, start.Equal(*resp.SessionStartTime))
	assert.Equal(t, 42.0, resp.LastPositionSeconds)
}

func TestPlayStateService_ConcurrentTicksAreNotLost(t *testing.T) {
	svc, _, _ := setupPlayStateService(t)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyTick(context.Background(), student, "video-1", dto.TickRequest{ElapsedSeconds: 5})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := svc.GetOrInit(context.Background(), student, "video-1", "")
	require.NoError(t, err)
	assert.Equal(t, 10.0, state.TotalWatchTimeSeconds)
}

func TestPlayStateService_InflatedElapsedIsClamped(t *testing.T) {
	svc, _, clock := setupPlayStateService(t)

	first := tick(t, svc, student, 500)
	assert.Equal(t, 10.0, first.CreditedSeconds)
	assert.Equal(t, shared.ElapsedSourceClientReported, first.ElapsedSource)

	clock.Advance(5 * time.Second)
	second := tick(t, svc, student, 500)
	assert.Equal(t, 10.0, second.CreditedSeconds)
	assert.Equal(t, shared.ElapsedSourceServerObserved, second.ElapsedSource)
}

func TestPlayStateService_NonPositiveElapsedIsNoop(t *testing.T) {
	svc, _, _ := setupPlayStateService(t)

	for _, elapsed := range []float64{0, -3} {
		resp := tick(t, svc, student, elapsed)
		assert.Zero(t, resp.TotalWatchTimeSeconds)
		assert.Zero(t, resp.CreditedSeconds)
		assert.Nil(t, resp.SessionStartTime)
	}
}

func TestPlayStateService_PrivilegedCallersAreExempt(t *testing.T) {
	svc, _, clock := setupPlayStateService(t)

	for i := 0; i < 50; i++ {
		resp := tick(t, svc, teacher, 5)
		assert.Equal(t, shared.PlayStatusActive, resp.Status)
		assert.Zero(t, resp.TotalWatchTimeSeconds)
		assert.Nil(t, resp.BudgetSeconds)
		clock.Advance(5 * time.Second)
	}
}

func TestPlayStateService_TeacherCanReadStudentState(t *testing.T) {
	svc, _, _ := setupPlayStateService(t)
	tick(t, svc, student, 5)

	resp, err := svc.GetOrInit(context.Background(), teacher, "video-1", student.UserID)
	require.NoError(t, err)
	assert.Equal(t, student.UserID, resp.StudentID)
	assert.Equal(t, 5.0, resp.TotalWatchTimeSeconds)
	require.NotNil(t, resp.BudgetSeconds, "the student's budget applies even when a teacher looks")
	assert.Equal(t, 200.0, *resp.BudgetSeconds)
}

func TestPlayStateService_AccessErrors(t *testing.T) {
	svc, db, _ := setupPlayStateService(t)
	seedUser(t, db, "student-2", shared.RoleStudent)
	ctx := context.Background()

	_, err := svc.GetOrInit(ctx, student, "video-1", "student-2")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.ApplyTick(ctx, student, "video-1", dto.TickRequest{StudentID: "student-2", ElapsedSeconds: 5})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.GetOrInit(ctx, student, "missing-video", "")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetOrInit(ctx, teacher, "video-1", "missing-student")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetOrInit(ctx, dto.Identity{}, "video-1", "")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestPlayStateService_UnknownCallerIsNotFound(t *testing.T) {
	svc, db, _ := setupPlayStateService(t)
	ctx := context.Background()
	ghost := dto.Identity{UserID: "student-ghost", Role: shared.RoleStudent}

	_, err := svc.ApplyTick(ctx, ghost, "video-1", dto.TickRequest{ElapsedSeconds: 5})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetOrInit(ctx, ghost, "video-1", "")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var rows int64
	require.NoError(t, db.Model(&model.PlayState{}).Where("student_id = ?", ghost.UserID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestPlayStateService_UnlimitedWhenDurationUnknown(t *testing.T) {
	svc, db, clock := setupPlayStateService(t)
	seedVideo(t, db, "video-live", nil, nil, nil)

	for i := 0; i < 60; i++ {
		resp, err := svc.ApplyTick(context.Background(), student, "video-live", dto.TickRequest{ElapsedSeconds: 5})
		require.NoError(t, err)
		assert.Equal(t, shared.PlayStatusActive, resp.Status)
		assert.Nil(t, resp.BudgetSeconds)
		clock.Advance(5 * time.Second)
	}
}

func TestPlayStateService_ResetUnblocks(t *testing.T) {
	svc, _, clock := setupPlayStateService(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		tick(t, svc, student, 10)
		clock.Advance(10 * time.Second)
	}
	blocked, err := svc.GetOrInit(ctx, student, "video-1", "")
	require.NoError(t, err)
	require.Equal(t, shared.PlayStatusBlocked, blocked.Status)

	_, err = svc.Reset(ctx, student, "video-1", student.UserID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	reset, err := svc.Reset(ctx, teacher, "video-1", student.UserID)
	require.NoError(t, err)
	assert.Equal(t, shared.PlayStatusActive, reset.Status)
	assert.Zero(t, reset.TotalWatchTimeSeconds)
	assert.Nil(t, reset.SessionStartTime)

	resp := tick(t, svc, student, 5)
	assert.Equal(t, 5.0, resp.TotalWatchTimeSeconds)
	assert.Equal(t, shared.ElapsedSourceClientReported, resp.ElapsedSource)
}

func TestPlayStateService_ListByVideo(t *testing.T) {
	svc, db, clock := setupPlayStateService(t)
	seedUser(t, db, "student-2", shared.RoleStudent)
	ctx := context.Background()

	tick(t, svc, student, 5)
	other := dto.Identity{UserID: "student-2", Role: shared.RoleStudent}
	tick(t, svc, other, 5)
	clock.Advance(5 * time.Second)
	tick(t, svc, other, 5)

	_, err := svc.ListByVideo(ctx, student, "video-1", 10, 0)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	list, err := svc.ListByVideo(ctx, teacher, "video-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "student-2", list.Items[0].StudentID)
	assert.Equal(t, 10.0, list.Items[0].TotalWatchTimeSeconds)

	page, err := svc.ListByVideo(ctx, teacher, "video-1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, student.UserID, page.Items[0].StudentID)
}

func TestPlayStateService_StoreFailureIsUnavailable(t *testing.T) {
	svc, db, _ := setupPlayStateService(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.ApplyTick(context.Background(), student, "video-1", dto.TickRequest{ElapsedSeconds: 5})
	assert.ErrorIs(t, err, shared.ErrTransientStore)
}
