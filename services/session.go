package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/services/repositories"
	"github.com/alexxvives/akademo_api/shared"
	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const SESSION_SVC = "session_svc"

const (
	msgSessionUnverifiable = "We could not verify your session. Please sign in again."
	msgSessionTerminated   = "Your session was ended because your account was used on another device."
	msgMissingDevice       = "Missing device information."
	msgDeviceNotCheckedIn  = "This device has not started a session yet. Please sign in again."
)

// SessionService keeps student accounts on a single active device. A
// check-in from a new device takes over and the previous device learns
// about it the next time it polls Validate.
type SessionService struct {
	appContext.DefaultService

	dbSvc        DatabaseProvider
	monitoring   *MonitoringService
	fingerprints *FingerprintService
	geolocation  *GeolocationService
	cache        KeyValueStore

	sessions *repositories.DeviceSessionRepository

	validityTTL   time.Duration
	kickNoticeTTL time.Duration
	now           func() time.Time
}

func (svc SessionService) Id() string {
	return SESSION_SVC
}

// NewSessionService builds a service outside the service container. cache
// may be nil, in which case every validity check reads the database.
func NewSessionService(db *gorm.DB, fingerprints *FingerprintService, cache KeyValueStore) *SessionService {
	return &SessionService{
		fingerprints:  fingerprints,
		cache:         cache,
		sessions:      repositories.NewDeviceSessionRepository(db),
		validityTTL:   30 * time.Second,
		kickNoticeTTL: 24 * time.Hour,
		now:           time.Now,
	}
}

func (svc *SessionService) Configure(ctx *appContext.Context) error {
	svc.validityTTL = shared.GetEnvDuration("SESSION_VALIDITY_CACHE_TTL", 30*time.Second)
	svc.kickNoticeTTL = shared.GetEnvDuration("SESSION_KICK_NOTICE_TTL", 24*time.Hour)
	svc.now = time.Now
	return svc.DefaultService.Configure(ctx)
}

func (svc *SessionService) Start() error {
	svc.dbSvc = svc.Service(DATABASE_SVC).(DatabaseProvider)
	svc.fingerprints = svc.Service(FINGERPRINT_SVC).(*FingerprintService)
	if redisSvc, ok := svc.Service(REDIS_SVC).(*RedisService); ok {
		svc.cache = redisSvc.Store()
	}
	if geo, ok := svc.Service(GEOLOCATION_SVC).(*GeolocationService); ok {
		svc.geolocation = geo
	}
	if monitoring, ok := svc.Service(MONITORING_SVC).(*MonitoringService); ok {
		svc.monitoring = monitoring
	}
	svc.sessions = repositories.NewDeviceSessionRepository(svc.dbSvc.Db())
	return nil
}

func (svc *SessionService) SetGeolocation(geo *GeolocationService) {
	svc.geolocation = geo
}

func (svc *SessionService) SetClock(now func() time.Time) {
	svc.now = now
}

// ResolveDevice fingerprints the request metadata
func (svc *SessionService) ResolveDevice(userAgent, clientIP string) dto.DeviceInfo {
	return svc.fingerprints.Resolve(userAgent, clientIP)
}

// CheckIn records that caller is using device. Only students are limited to
// one device; every other role is accepted without touching storage. A
// storage failure rejects students and never returns an error.
func (svc *SessionService) CheckIn(ctx context.Context, caller dto.Identity, device dto.DeviceInfo) dto.CheckInResult {
	result := dto.CheckInResult{Valid: true, Fingerprint: device.Fingerprint}

	if !shared.IsExclusivityEnforced(caller.Role) {
		svc.monitoring.RecordCheckIn(caller.Role, "exempt", 0)
		return result
	}

	if caller.UserID == "" || device.Fingerprint == "" {
		svc.monitoring.RecordCheckIn(caller.Role, "rejected", 0)
		return dto.CheckInResult{Valid: false, Fingerprint: device.Fingerprint, Message: msgMissingDevice}
	}

	now := svc.now()
	session := &model.DeviceSession{
		UserID:      caller.UserID,
		Fingerprint: device.Fingerprint,
		UserAgent:   truncate(device.UserAgent, 512),
		Browser:     truncate(device.Browser, 64),
		OS:          truncate(device.OS, 64),
		IPHash:      device.IPHash,
		LastSeenAt:  now,
	}

	displaced, err := svc.sessions.ActivateExclusive(ctx, session)
	if err != nil {
		log.WithFields(log.Fields{
			"user_id":     caller.UserID,
			"fingerprint": device.Fingerprint,
		}).WithError(svc.handleError(err)).Error("Session check-in failed, rejecting student session")
		svc.monitoring.RecordCheckIn(caller.Role, "store_error", 0)
		return dto.CheckInResult{Valid: false, Fingerprint: device.Fingerprint, Message: msgSessionUnverifiable}
	}

	svc.cacheActiveDevice(ctx, caller.UserID, session)
	svc.deleteKickNotice(ctx, caller.UserID, device.Fingerprint)

	if len(displaced) > 0 {
		location := ""
		if svc.geolocation.Enabled() {
			location = svc.geolocation.GetLocationByIP(ctx, device.ClientIP)
		}
		for _, prev := range displaced {
			svc.leaveKickNotice(ctx, caller.UserID, prev.Fingerprint, *session, location, now)
		}

		log.WithFields(log.Fields{
			"user_id":     caller.UserID,
			"fingerprint": device.Fingerprint,
			"displaced":   len(displaced),
		}).Info("Student session moved to a new device")
	}

	svc.monitoring.RecordCheckIn(caller.Role, "valid", len(displaced))
	return result
}

// IsCurrentDeviceValid reports whether fingerprint is the active device of
// userID. The cache holds the user's active device tagged with its
// activation sequence and only ever moves forward, so a late write from an
// older check-in or read cannot bring back a displaced device.
func (svc *SessionService) IsCurrentDeviceValid(ctx context.Context, userID, fingerprint string) (bool, error) {
	if userID == "" || fingerprint == "" {
		return false, nil
	}

	if svc.cache != nil {
		_, active, ok, err := svc.cache.GetVersioned(ctx, activeDeviceKey(userID))
		if err != nil {
			log.WithError(err).Debug("Session validity cache unavailable")
		} else if ok {
			return active == fingerprint, nil
		}
	}

	sessions, err := svc.sessions.GetActiveSessions(ctx, userID)
	if err != nil {
		return false, shared.NewServiceUnavailableError(svc.handleError(err), msgSessionUnverifiable)
	}
	if len(sessions) == 0 {
		return false, nil
	}

	active := sessions[0]
	svc.cacheActiveDevice(ctx, userID, &active)
	return active.Fingerprint == fingerprint, nil
}

// Validate answers the polling client. Students get valid=false on any
// failure; the message explains a takeover when one was recorded.
func (svc *SessionService) Validate(ctx context.Context, caller dto.Identity, device dto.DeviceInfo) dto.SessionValidityResponse {
	resp := dto.SessionValidityResponse{Valid: true, Fingerprint: device.Fingerprint}
	if !shared.IsExclusivityEnforced(caller.Role) {
		return resp
	}

	valid, err := svc.IsCurrentDeviceValid(ctx, caller.UserID, device.Fingerprint)
	if err != nil {
		log.WithField("user_id", caller.UserID).WithError(err).Warn("Session validation failed, treating as invalid")
		resp.Valid = false
		resp.Message = msgSessionUnverifiable
		return resp
	}
	if valid {
		return resp
	}

	resp.Valid = false
	resp.Message = msgSessionTerminated
	if notice, ok := svc.KickNotice(ctx, caller.UserID, device.Fingerprint); ok {
		resp.Message = notice.Message
		return resp
	}

	_, err = svc.sessions.GetSession(ctx, caller.UserID, device.Fingerprint)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resp.Message = msgDeviceNotCheckedIn
	}
	return resp
}

// KickNotice returns the takeover notice left for a displaced device
func (svc *SessionService) KickNotice(ctx context.Context, userID, fingerprint string) (*dto.KickNotice, bool) {
	if svc.cache == nil {
		return nil, false
	}
	var notice dto.KickNotice
	if err := svc.cache.GetJSON(ctx, kickNoticeKey(userID, fingerprint), &notice); err != nil || notice.Message == "" {
		return nil, false
	}
	return &notice, true
}

func (svc *SessionService) leaveKickNotice(ctx context.Context, userID, fingerprint string, by model.DeviceSession, location string, at time.Time) {
	if svc.cache == nil {
		return
	}

	label := by.DeviceLabel()
	message := fmt.Sprintf("Your session was ended because your account signed in on %s.", label)
	if location != "" && location != "Unknown" {
		message = fmt.Sprintf("Your session was ended because your account signed in on %s near %s.", label, location)
	}

	notice := dto.KickNotice{
		Message:    message,
		TakenOver:  label,
		Location:   location,
		OccurredAt: at,
	}
	if err := svc.cache.Set(ctx, kickNoticeKey(userID, fingerprint), notice, svc.kickNoticeTTL); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Failed to store kick notice")
	}
}

func (svc *SessionService) deleteKickNotice(ctx context.Context, userID, fingerprint string) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Delete(ctx, kickNoticeKey(userID, fingerprint)); err != nil {
		log.WithError(err).Debug("Failed to clear kick notice")
	}
}

func (svc *SessionService) cacheActiveDevice(ctx context.Context, userID string, session *model.DeviceSession) {
	if svc.cache == nil || svc.validityTTL <= 0 {
		return
	}
	written, err := svc.cache.SetIfNewer(ctx, activeDeviceKey(userID), session.ActivationSeq, session.Fingerprint, svc.validityTTL)
	if err != nil {
		log.WithError(err).Debug("Failed to cache active device")
		return
	}
	if !written {
		log.WithFields(log.Fields{
			"user_id":        userID,
			"activation_seq": session.ActivationSeq,
		}).Debug("Newer active device already cached")
	}
}

func (svc *SessionService) handleError(err error) error {
	if svc.dbSvc != nil {
		return svc.dbSvc.HandleError(err)
	}
	return classifyDatabaseError(err)
}

func activeDeviceKey(userID string) string {
	return fmt.Sprintf("session:active:%s", userID)
}

func kickNoticeKey(userID, fingerprint string) string {
	return fmt.Sprintf("session:kicked:%s:%s", userID, fingerprint)
}

// truncate drops invalid UTF-8 and cuts s to at most max bytes without
// splitting a rune
func truncate(s string, max int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
