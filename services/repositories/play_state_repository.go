package repositories

import (
	"context"
	"time"

	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TickMutation describes one accepted progress report. BudgetMs < 0 means
// the pair has no watch limit.
type TickMutation struct {
	VideoID    string
	StudentID  string
	PositionMs int64
	Final      bool
	BudgetMs   int64
	Now        time.Time
}

// CreditFunc decides how many milliseconds to credit given the row as it is
// inside the transaction, before the increment.
type CreditFunc func(current *model.PlayState) int64

type TickOutcome struct {
	State          *model.PlayState
	CreditedMs     int64
	AlreadyBlocked bool
}

// PlayStateRepository handles the per (video, student) watch ledger
type PlayStateRepository struct {
	BaseRepository
}

func NewPlayStateRepository(db *gorm.DB) *PlayStateRepository {
	return &PlayStateRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetOrInit returns the row for the pair, creating a zeroed ACTIVE row when
// none exists. Concurrent callers end up with the same single row.
func (r *PlayStateRepository) GetOrInit(ctx context.Context, videoID, studentID string) (*model.PlayState, error) {
	return r.getOrInit(r.withContext(ctx), videoID, studentID, time.Now())
}

func (r *PlayStateRepository) getOrInit(tx *gorm.DB, videoID, studentID string, now time.Time) (*model.PlayState, error) {
	id, _ := uuid.NewV7()
	row := model.PlayState{
		ID:        id.String(),
		VideoID:   videoID,
		StudentID: studentID,
		Status:    shared.PlayStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, err
	}
	return r.find(tx, videoID, studentID)
}

func (r *PlayStateRepository) find(tx *gorm.DB, videoID, studentID string) (*model.PlayState, error) {
	var state model.PlayState
	if err := tx.Where("video_id = ? AND student_id = ?", videoID, studentID).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// ApplyTick credits watch time to the pair and blocks it once the budget is
// reached. The increment is done in SQL so concurrent ticks are never lost,
// and the status flip only ever moves ACTIVE to BLOCKED.
func (r *PlayStateRepository) ApplyTick(ctx context.Context, m TickMutation, credit CreditFunc) (*TickOutcome, error) {
	out := &TickOutcome{}

	err := r.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.getOrInit(tx, m.VideoID, m.StudentID, m.Now)
		if err != nil {
			return err
		}
		if current.IsBlocked() {
			out.State = current
			out.AlreadyBlocked = true
			return nil
		}

		creditedMs := credit(current)
		if creditedMs < 0 {
			creditedMs = 0
		}

		res := tx.Model(&model.PlayState{}).
			Where("video_id = ? AND student_id = ? AND status = ?", m.VideoID, m.StudentID, shared.PlayStatusActive).
			Updates(map[string]interface{}{
				"total_watch_time_ms": gorm.Expr("total_watch_time_ms + ?", creditedMs),
				"last_position_ms":    m.PositionMs,
				"session_start_time":  gorm.Expr("COALESCE(session_start_time, ?)", m.Now),
				"last_tick_at":        m.Now,
				"last_tick_final":     m.Final,
				"updated_at":          m.Now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// blocked between the read and the update
			out.State, err = r.find(tx, m.VideoID, m.StudentID)
			out.AlreadyBlocked = true
			return err
		}

		if m.BudgetMs >= 0 {
			if err := tx.Model(&model.PlayState{}).
				Where("video_id = ? AND student_id = ? AND status = ? AND total_watch_time_ms >= ?",
					m.VideoID, m.StudentID, shared.PlayStatusActive, m.BudgetMs).
				Updates(map[string]interface{}{"status": shared.PlayStatusBlocked, "updated_at": m.Now}).Error; err != nil {
				return err
			}
		}

		out.CreditedMs = creditedMs
		out.State, err = r.find(tx, m.VideoID, m.StudentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// RecordPosition stores only the playback position. Used for callers whose
// watch time is not metered.
func (r *PlayStateRepository) RecordPosition(ctx context.Context, videoID, studentID string, positionMs int64, now time.Time) (*model.PlayState, error) {
	var state *model.PlayState

	err := r.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.getOrInit(tx, videoID, studentID, now); err != nil {
			return err
		}
		if err := tx.Model(&model.PlayState{}).
			Where("video_id = ? AND student_id = ?", videoID, studentID).
			Updates(map[string]interface{}{"last_position_ms": positionMs, "updated_at": now}).Error; err != nil {
			return err
		}
		var err error
		state, err = r.find(tx, videoID, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// Reset zeroes the accumulated time and reactivates the pair
func (r *PlayStateRepository) Reset(ctx context.Context, videoID, studentID string, now time.Time) (*model.PlayState, error) {
	var state *model.PlayState

	err := r.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.getOrInit(tx, videoID, studentID, now); err != nil {
			return err
		}
		if err := tx.Model(&model.PlayState{}).
			Where("video_id = ? AND student_id = ?", videoID, studentID).
			Updates(map[string]interface{}{
				"total_watch_time_ms": 0,
				"session_start_time":  nil,
				"status":              shared.PlayStatusActive,
				"last_tick_at":        nil,
				"last_tick_final":     false,
				"updated_at":          now,
			}).Error; err != nil {
			return err
		}
		var err error
		state, err = r.find(tx, videoID, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// ListByVideo returns the rows of a video ordered by most watched first
func (r *PlayStateRepository) ListByVideo(ctx context.Context, videoID string, limit, offset int) ([]model.PlayState, int64, error) {
	var (
		states []model.PlayState
		total  int64
	)

	db := r.withContext(ctx)
	if err := db.Model(&model.PlayState{}).Where("video_id = ?", videoID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.Where("video_id = ?", videoID).Order("total_watch_time_ms DESC").Order("student_id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&states).Error; err != nil {
		return nil, 0, err
	}

	return states, total, nil
}
