package player

import (
	"context"
	"errors"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrSchedulerClosed = errors.New("scheduler closed")

// Ticker is the part of time.Ticker the scheduler uses
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Config struct {
	VideoID string
	// StudentID is only set when a privileged user reports for someone else
	StudentID string
	Role      string

	// TickInterval is how often the accumulator grows by the playback rate
	TickInterval time.Duration
	// FlushThreshold is the accumulated seconds that trigger a report
	FlushThreshold float64
	RequestTimeout time.Duration

	// Position returns the current playback position in seconds
	Position func() float64

	NewTicker func(d time.Duration) Ticker
	Logger    *zerolog.Logger
}

// Hooks let the UI react to the scheduler. Each hook runs on the scheduler
// goroutine and must not call back into the scheduler.
type Hooks struct {
	OnState   func(*dto.TickResponse)
	OnBlocked func(dto.PlayStateResponse)
	OnLocked  func(error)
}

// State is a snapshot of the scheduler
type State struct {
	Playing      bool
	PlaybackRate float64
	Accumulated  float64
	Blocked      bool
	Locked       bool
	TicksSent    int
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdRate
	cmdLock
	cmdSnapshot
	cmdClose
)

type command struct {
	kind  commandKind
	rate  float64
	err   error
	reply chan State
}

// Scheduler accumulates watch time while a video plays and reports it in
// batches. One goroutine owns all state; public methods are commands
// processed in order by Run. Whatever has been accumulated is reported when
// playback pauses and when Run returns.
type Scheduler struct {
	cfg    Config
	api    ProgressAPI
	hooks  Hooks
	logger zerolog.Logger

	cmds chan command
	done chan struct{}

	// owned by the Run goroutine
	state  State
	ticker Ticker
}

func NewScheduler(api ProgressAPI, cfg Config, hooks Hooks) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = 5
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = newTimeTicker
	}

	logger := log.With().Str("component", "tick_scheduler").Str("video_id", cfg.VideoID).Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Scheduler{
		cfg:    cfg,
		api:    api,
		hooks:  hooks,
		logger: logger,
		cmds:   make(chan command),
		done:   make(chan struct{}),
		state:  State{PlaybackRate: 1},
	}
}

// Run processes commands until ctx is cancelled or Close is called. The
// remaining accumulator is always reported before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.flush(true)
	defer s.stopTicker()

	for {
		var tickC <-chan time.Time
		if s.ticker != nil {
			tickC = s.ticker.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tickC:
			s.onTick()

		case cmd := <-s.cmds:
			closing := s.handle(cmd)
			if cmd.reply != nil {
				cmd.reply <- s.state
			}
			if closing {
				return nil
			}
		}
	}
}

func (s *Scheduler) Play() error {
	_, err := s.send(command{kind: cmdPlay})
	return err
}

// Pause stops ticking and reports the partial accumulator
func (s *Scheduler) Pause() error {
	_, err := s.send(command{kind: cmdPause})
	return err
}

func (s *Scheduler) SetPlaybackRate(rate float64) error {
	_, err := s.send(command{kind: cmdRate, rate: rate})
	return err
}

// Lock stops playback for good, e.g. after the session was terminated.
// Nothing accumulated afterwards is reported.
func (s *Scheduler) Lock(reason error) error {
	_, err := s.send(command{kind: cmdLock, err: reason})
	return err
}

func (s *Scheduler) Snapshot() (State, error) {
	return s.send(command{kind: cmdSnapshot})
}

// Close flushes and stops Run
func (s *Scheduler) Close() error {
	_, err := s.send(command{kind: cmdClose})
	if errors.Is(err, ErrSchedulerClosed) {
		return nil
	}
	return err
}

func (s *Scheduler) send(cmd command) (State, error) {
	cmd.reply = make(chan State, 1)
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return State{}, ErrSchedulerClosed
	}
	select {
	case state := <-cmd.reply:
		return state, nil
	case <-s.done:
		return State{}, ErrSchedulerClosed
	}
}

func (s *Scheduler) handle(cmd command) bool {
	switch cmd.kind {
	case cmdPlay:
		if s.state.Blocked || s.state.Locked || s.state.Playing {
			return false
		}
		s.state.Playing = true
		if !shared.IsBudgetExempt(s.cfg.Role) {
			s.ticker = s.cfg.NewTicker(s.cfg.TickInterval)
		}

	case cmdPause:
		if !s.state.Playing {
			return false
		}
		s.state.Playing = false
		s.stopTicker()
		s.flush(true)

	case cmdRate:
		if cmd.rate > 0 {
			s.state.PlaybackRate = cmd.rate
		}

	case cmdLock:
		s.lock(cmd.err)

	case cmdClose:
		return true
	}
	return false
}

func (s *Scheduler) onTick() {
	if !s.state.Playing || s.state.Blocked || s.state.Locked {
		return
	}

	s.state.Accumulated += s.state.PlaybackRate
	if s.state.Accumulated >= s.cfg.FlushThreshold {
		s.flush(false)
	}
}

// flush reports the accumulator. It uses its own timeout so the final report
// still goes out after the Run context was cancelled.
func (s *Scheduler) flush(final bool) {
	elapsed := s.state.Accumulated
	if elapsed <= 0 || s.state.Blocked || s.state.Locked {
		return
	}
	s.state.Accumulated = 0

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()

	req := dto.TickRequest{
		StudentID:      s.cfg.StudentID,
		ElapsedSeconds: elapsed,
		PlaybackRate:   s.state.PlaybackRate,
		Final:          final,
	}
	if s.cfg.Position != nil {
		req.CurrentPositionSeconds = s.cfg.Position()
	}

	resp, err := s.api.Tick(ctx, s.cfg.VideoID, req)
	s.state.TicksSent++
	if err != nil {
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrSessionTerminated) {
			s.logger.Warn().Err(err).Msg("Progress rejected, locking player")
			s.lock(err)
			return
		}
		s.logger.Warn().Err(err).Float64("elapsed_seconds", elapsed).Msg("Dropping progress tick")
		return
	}

	if s.hooks.OnState != nil {
		s.hooks.OnState(resp)
	}

	if resp.Status == shared.PlayStatusBlocked {
		s.logger.Info().Float64("total_watch_seconds", resp.TotalWatchTimeSeconds).Msg("Watch budget exhausted")
		s.state.Blocked = true
		s.state.Playing = false
		s.stopTicker()
		if s.hooks.OnBlocked != nil {
			s.hooks.OnBlocked(resp.PlayStateResponse)
		}
	}
}

func (s *Scheduler) lock(reason error) {
	if s.state.Locked {
		return
	}
	s.state.Locked = true
	s.state.Playing = false
	s.state.Accumulated = 0
	s.stopTicker()
	if s.hooks.OnLocked != nil {
		s.hooks.OnLocked(reason)
	}
}

func (s *Scheduler) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}
