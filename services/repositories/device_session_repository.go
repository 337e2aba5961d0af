package repositories

import (
	"context"
	"time"

	"github.com/alexxvives/akademo_api/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceSessionRepository handles user device session operations
type DeviceSessionRepository struct {
	BaseRepository
}

func NewDeviceSessionRepository(db *gorm.DB) *DeviceSessionRepository {
	return &DeviceSessionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// ActivateExclusive makes session the only active device of its user.
// Every other active row of the user is deactivated and returned so the
// caller can notify the displaced devices. The whole switch runs in one
// transaction; on postgres it is additionally serialized per user with an
// advisory lock so two concurrent check-ins can never both stay active.
// session.ActivationSeq is set to the user's next sequence number, so a
// later commit always carries a higher value.
func (r *DeviceSessionRepository) ActivateExclusive(ctx context.Context, session *model.DeviceSession) ([]model.DeviceSession, error) {
	var displaced []model.DeviceSession

	now := session.LastSeenAt
	if now.IsZero() {
		now = time.Now()
		session.LastSeenAt = now
	}

	err := r.withContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPostgres(tx) {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", session.UserID).Error; err != nil {
				return err
			}
		}

		var lastSeq int64
		if err := tx.Model(&model.DeviceSession{}).
			Where("user_id = ?", session.UserID).
			Select("COALESCE(MAX(activation_seq), 0)").
			Scan(&lastSeq).Error; err != nil {
			return err
		}
		session.ActivationSeq = lastSeq + 1

		if err := tx.Where("user_id = ? AND fingerprint <> ? AND is_active = ?", session.UserID, session.Fingerprint, true).
			Find(&displaced).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.DeviceSession{}).
			Where("user_id = ? AND fingerprint <> ? AND is_active = ?", session.UserID, session.Fingerprint, true).
			Updates(map[string]interface{}{"is_active": false, "updated_at": now}).Error; err != nil {
			return err
		}

		if session.ID == "" {
			id, _ := uuid.NewV7()
			session.ID = id.String()
		}
		session.IsActive = true
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		session.UpdatedAt = now

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "fingerprint"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_agent", "browser", "os", "ip_hash", "is_active", "activation_seq", "last_seen_at", "updated_at",
			}),
		}).Create(session).Error
	})
	if err != nil {
		return nil, err
	}

	return displaced, nil
}

// IsActive reports whether (userID, fingerprint) is the user's active device.
// A pair that was never seen is not active.
func (r *DeviceSessionRepository) IsActive(ctx context.Context, userID, fingerprint string) (bool, error) {
	var count int64
	err := r.withContext(ctx).Model(&model.DeviceSession{}).
		Where("user_id = ? AND fingerprint = ? AND is_active = ?", userID, fingerprint, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetActiveSessions returns the active rows of a user, latest activation
// first. For students there is at most one.
func (r *DeviceSessionRepository) GetActiveSessions(ctx context.Context, userID string) ([]model.DeviceSession, error) {
	var sessions []model.DeviceSession
	if err := r.withContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).
		Order("activation_seq DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *DeviceSessionRepository) GetSession(ctx context.Context, userID, fingerprint string) (*model.DeviceSession, error) {
	var session model.DeviceSession
	if err := r.withContext(ctx).Where("user_id = ? AND fingerprint = ?", userID, fingerprint).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteStaleSessions removes inactive rows not seen since cutoff
func (r *DeviceSessionRepository) DeleteStaleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.withContext(ctx).
		Where("is_active = ? AND last_seen_at < ?", false, cutoff).
		Delete(&model.DeviceSession{})
	return res.RowsAffected, res.Error
}
