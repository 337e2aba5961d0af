package services

import (
	"context"
	"errors"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/services/repositories"
	"github.com/alexxvives/akademo_api/shared"
	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const PLAY_STATE_SVC = "play_state_svc"

// PlayStateService meters how long each student watches each video and
// blocks playback once the video's watch budget is used up.
type PlayStateService struct {
	appContext.DefaultService

	dbSvc      DatabaseProvider
	monitoring *MonitoringService

	playStates *repositories.PlayStateRepository
	videos     *repositories.VideoRepository
	users      *repositories.UserRepository

	budget  BudgetResolver
	elapsed ElapsedPolicy
	now     func() time.Time
}

func (svc PlayStateService) Id() string {
	return PLAY_STATE_SVC
}

// NewPlayStateService builds a service outside the service container
func NewPlayStateService(db *gorm.DB, budget BudgetResolver, elapsed ElapsedPolicy) *PlayStateService {
	svc := &PlayStateService{
		budget:  budget,
		elapsed: elapsed,
		now:     time.Now,
	}
	svc.useDB(db)
	return svc
}

func (svc *PlayStateService) Configure(ctx *appContext.Context) error {
	svc.budget = NewBudgetResolver(shared.GetEnvFloat("DEFAULT_WATCH_MULTIPLIER", shared.DefaultWatchMultiplier))
	svc.elapsed = LoadElapsedPolicy()
	svc.now = time.Now
	return svc.DefaultService.Configure(ctx)
}

func (svc *PlayStateService) Start() error {
	svc.dbSvc = svc.Service(DATABASE_SVC).(DatabaseProvider)
	if monitoring, ok := svc.Service(MONITORING_SVC).(*MonitoringService); ok {
		svc.monitoring = monitoring
	}
	svc.useDB(svc.dbSvc.Db())
	return nil
}

func (svc *PlayStateService) useDB(db *gorm.DB) {
	svc.playStates = repositories.NewPlayStateRepository(db)
	svc.videos = repositories.NewVideoRepository(db)
	svc.users = repositories.NewUserRepository(db)
}

// SetClock replaces the wall clock used for tick observation
func (svc *PlayStateService) SetClock(now func() time.Time) {
	svc.now = now
}

// GetOrInit returns the caller's play state for a video, or the state of
// studentID when the caller is privileged.
func (svc *PlayStateService) GetOrInit(ctx context.Context, caller dto.Identity, videoID, studentID string) (*dto.PlayStateResponse, error) {
	student, err := svc.resolveStudent(ctx, caller, studentID)
	if err != nil {
		return nil, err
	}

	video, err := svc.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	state, err := svc.playStates.GetOrInit(ctx, videoID, student)
	if err != nil {
		return nil, svc.storeError(err, "failed to load play state")
	}

	resp := dto.NewPlayStateResponse(state, svc.budgetFor(caller, student, video))
	return &resp, nil
}

// ApplyTick credits one progress report. Ticks for a BLOCKED pair succeed
// without changing anything and report BLOCKED again.
func (svc *PlayStateService) ApplyTick(ctx context.Context, caller dto.Identity, videoID string, req dto.TickRequest) (*dto.TickResponse, error) {
	student, err := svc.resolveStudent(ctx, caller, req.StudentID)
	if err != nil {
		return nil, err
	}

	video, err := svc.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	budgetMs := svc.budgetFor(caller, student, video)

	if req.ElapsedSeconds <= 0 {
		state, err := svc.playStates.GetOrInit(ctx, videoID, student)
		if err != nil {
			return nil, svc.storeError(err, "failed to load play state")
		}
		svc.monitoring.RecordTick("", "noop", 0, false)
		return &dto.TickResponse{PlayStateResponse: dto.NewPlayStateResponse(state, budgetMs)}, nil
	}

	positionMs := dto.SecondsToMillis(req.CurrentPositionSeconds)
	now := svc.now()

	if shared.IsBudgetExempt(caller.Role) {
		state, err := svc.playStates.RecordPosition(ctx, videoID, student, positionMs, now)
		if err != nil {
			return nil, svc.storeError(err, "failed to record position")
		}
		svc.monitoring.RecordTick("", "position_only", 0, false)
		return &dto.TickResponse{PlayStateResponse: dto.NewPlayStateResponse(state, budgetMs)}, nil
	}

	var decision ElapsedDecision
	outcome, err := svc.playStates.ApplyTick(ctx, repositories.TickMutation{
		VideoID:    videoID,
		StudentID:  student,
		PositionMs: positionMs,
		Final:      req.Final,
		BudgetMs:   budgetMs,
		Now:        now,
	}, func(current *model.PlayState) int64 {
		decision = svc.elapsed.Resolve(req.ElapsedSeconds, current.LastTickAt, current.LastTickFinal, now)
		return decision.CreditedMs
	})
	if err != nil {
		svc.monitoring.RecordTick(decision.Source, "error", 0, false)
		return nil, svc.storeError(err, "failed to record progress")
	}

	if outcome.AlreadyBlocked {
		log.WithFields(log.Fields{
			"video_id":   videoID,
			"student_id": student,
		}).Debug("Tick ignored for blocked play state")
		svc.monitoring.RecordTick("", "already_blocked", 0, false)
		return &dto.TickResponse{PlayStateResponse: dto.NewPlayStateResponse(outcome.State, budgetMs)}, nil
	}

	if req.PlaybackRate > svc.elapsed.MaxRate {
		log.WithFields(log.Fields{
			"student_id":    student,
			"playback_rate": req.PlaybackRate,
			"max_rate":      svc.elapsed.MaxRate,
		}).Warn("Client reported playback rate above the allowed maximum")
	}

	blocked := outcome.State.IsBlocked()
	credited := dto.MillisToSeconds(outcome.CreditedMs)
	svc.monitoring.RecordTick(decision.Source, "credited", credited, blocked)

	if blocked {
		log.WithFields(log.Fields{
			"video_id":         videoID,
			"student_id":       student,
			"total_watch_ms":   outcome.State.TotalWatchTimeMs,
			"budget_ms":        budgetMs,
			"elapsed_source":   decision.Source,
			"credited_seconds": credited,
		}).Info("Watch budget exhausted, play state blocked")
	}

	return &dto.TickResponse{
		PlayStateResponse: dto.NewPlayStateResponse(outcome.State, budgetMs),
		CreditedSeconds:   credited,
		ElapsedSource:     decision.Source,
	}, nil
}

// Reset clears a student's accumulated time on a video and unblocks it
func (svc *PlayStateService) Reset(ctx context.Context, caller dto.Identity, videoID, studentID string) (*dto.PlayStateResponse, error) {
	if !shared.IsBudgetExempt(caller.Role) {
		return nil, shared.NewForbiddenError(nil, "only teachers and administrators can reset watch time")
	}
	if studentID == "" {
		return nil, shared.NewBadRequestError(nil, "student id is required")
	}

	if err := svc.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	video, err := svc.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	state, err := svc.playStates.Reset(ctx, videoID, studentID, svc.now())
	if err != nil {
		return nil, svc.storeError(err, "failed to reset play state")
	}

	svc.monitoring.RecordReset()
	log.WithFields(log.Fields{
		"video_id":   videoID,
		"student_id": studentID,
		"reset_by":   caller.UserID,
	}).Info("Play state reset")

	resp := dto.NewPlayStateResponse(state, svc.budget.BudgetMillis(video))
	return &resp, nil
}

// ListByVideo exposes the play states of a video to reporting surfaces
func (svc *PlayStateService) ListByVideo(ctx context.Context, caller dto.Identity, videoID string, limit, offset int) (*dto.PlayStateListResponse, error) {
	if !shared.IsBudgetExempt(caller.Role) {
		return nil, shared.NewForbiddenError(nil, "only teachers and administrators can list play states")
	}

	video, err := svc.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	states, total, err := svc.playStates.ListByVideo(ctx, videoID, limit, offset)
	if err != nil {
		return nil, svc.storeError(err, "failed to list play states")
	}

	budgetMs := svc.budget.BudgetMillis(video)
	items := make([]dto.PlayStateResponse, 0, len(states))
	for i := range states {
		items = append(items, dto.NewPlayStateResponse(&states[i], budgetMs))
	}

	return &dto.PlayStateListResponse{
		VideoID: videoID,
		Items:   items,
		Total:   int(total),
	}, nil
}

// resolveStudent returns whose play state the caller is addressing. Only
// privileged callers may name another student; nobody is silently redirected
// to their own id. The addressed user must exist, the caller included.
func (svc *PlayStateService) resolveStudent(ctx context.Context, caller dto.Identity, studentID string) (string, error) {
	if caller.UserID == "" {
		return "", shared.NewUnauthorizedError(nil, "missing caller identity")
	}
	if studentID == "" {
		studentID = caller.UserID
	}
	if studentID != caller.UserID && !shared.IsBudgetExempt(caller.Role) {
		return "", shared.NewForbiddenError(nil, "cannot access another student's progress")
	}
	if err := svc.requireStudent(ctx, studentID); err != nil {
		return "", err
	}
	return studentID, nil
}

func (svc *PlayStateService) requireStudent(ctx context.Context, studentID string) error {
	exists, err := svc.users.UserExists(ctx, studentID)
	if err != nil {
		return svc.storeError(err, "failed to load student")
	}
	if !exists {
		return shared.NewNotFoundError(nil, "student not found")
	}
	return nil
}

func (svc *PlayStateService) loadVideo(ctx context.Context, videoID string) (*model.Video, error) {
	video, err := svc.videos.GetVideoWithPolicy(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "video not found")
		}
		return nil, svc.storeError(err, "failed to load video")
	}
	return video, nil
}

// budgetFor is unlimited only for a privileged caller looking at their own
// row; a teacher inspecting a student sees the student's budget.
func (svc *PlayStateService) budgetFor(caller dto.Identity, studentID string, video *model.Video) int64 {
	if studentID == caller.UserID && shared.IsBudgetExempt(caller.Role) {
		return UnlimitedBudget
	}
	return svc.budget.BudgetMillis(video)
}

func (svc *PlayStateService) storeError(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(err, message)
	}
	if svc.dbSvc != nil {
		err = svc.dbSvc.HandleError(err)
	} else {
		err = classifyDatabaseError(err)
	}
	return shared.NewServiceUnavailableError(err, message)
}
