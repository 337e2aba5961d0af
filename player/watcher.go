package player

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTerminatedMessage = "Your session was ended because your account was used on another device."

// SessionWatcher polls the session endpoint and reports when this device
// stops being the active one. It fires at most once.
type SessionWatcher struct {
	api          SessionAPI
	interval     time.Duration
	newTicker    func(d time.Duration) Ticker
	onTerminated func(message string)
	scheduler    *Scheduler
	logger       zerolog.Logger

	once sync.Once
}

type WatcherOption func(*SessionWatcher)

func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *SessionWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithWatcherTicker(newTicker func(d time.Duration) Ticker) WatcherOption {
	return func(w *SessionWatcher) { w.newTicker = newTicker }
}

// WithScheduler locks the scheduler when the session ends
func WithScheduler(s *Scheduler) WatcherOption {
	return func(w *SessionWatcher) { w.scheduler = s }
}

func NewSessionWatcher(api SessionAPI, onTerminated func(message string), opts ...WatcherOption) *SessionWatcher {
	w := &SessionWatcher{
		api:          api,
		interval:     30 * time.Second,
		newTicker:    newTimeTicker,
		onTerminated: onTerminated,
		logger:       log.With().Str("component", "session_watcher").Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CheckIn registers this device as the active one. A rejected check-in ends
// the session right away and returns ErrSessionTerminated; transport errors
// are returned as is.
func (w *SessionWatcher) CheckIn(ctx context.Context) error {
	resp, err := w.api.CheckIn(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionTerminated) {
			w.terminate(messageOf(err))
		}
		return err
	}
	if resp.Valid {
		return nil
	}

	msg := resp.Message
	if msg == "" {
		msg = defaultTerminatedMessage
	}
	w.terminate(msg)
	return &APIError{StatusCode: http.StatusUnauthorized, Message: msg, kind: ErrSessionTerminated}
}

// Run checks the session immediately and then on every interval. It returns
// nil once the session was found terminated, or ctx.Err().
func (w *SessionWatcher) Run(ctx context.Context) error {
	if w.check(ctx) {
		return nil
	}

	ticker := w.newTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if w.check(ctx) {
				return nil
			}
		}
	}
}

// check returns true when the session is over
func (w *SessionWatcher) check(ctx context.Context) bool {
	resp, err := w.api.Validate(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionTerminated) {
			w.terminate(messageOf(err))
			return true
		}
		if ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("Session validation failed, retrying next interval")
		}
		return false
	}

	if resp.Valid {
		return false
	}

	msg := resp.Message
	if msg == "" {
		msg = defaultTerminatedMessage
	}
	w.terminate(msg)
	return true
}

func (w *SessionWatcher) terminate(message string) {
	w.once.Do(func() {
		w.logger.Info().Str("reason", message).Msg("Session terminated")
		if w.scheduler != nil {
			if err := w.scheduler.Lock(errors.Join(ErrSessionTerminated, errors.New(message))); err != nil && !errors.Is(err, ErrSchedulerClosed) {
				w.logger.Warn().Err(err).Msg("Failed to lock player")
			}
		}
		if w.onTerminated != nil {
			w.onTerminated(message)
		}
	})
}

func messageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return defaultTerminatedMessage
}
