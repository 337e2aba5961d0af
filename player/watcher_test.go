package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSessionAPI struct {
	mu         sync.Mutex
	results    []func() (*dto.SessionValidityResponse, error)
	calls      int
	checkIn    *dto.CheckInResult
	checkInErr error
}

func (s *scriptedSessionAPI) CheckIn(context.Context) (*dto.CheckInResult, error) {
	if s.checkInErr != nil {
		return nil, s.checkInErr
	}
	if s.checkIn != nil {
		return s.checkIn, nil
	}
	return &dto.CheckInResult{Valid: true}, nil
}

func (s *scriptedSessionAPI) Validate(context.Context) (*dto.SessionValidityResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		return &dto.SessionValidityResponse{Valid: true}, nil
	}
	return s.results[i]()
}

func valid() (*dto.SessionValidityResponse, error) {
	return &dto.SessionValidityResponse{Valid: true}, nil
}

func runWatcher(t *testing.T, api SessionAPI, opts ...WatcherOption) (chan string, *tickerFactory, chan error) {
	t.Helper()

	terminated := make(chan string, 2)
	tickers := &tickerFactory{}
	opts = append(opts, WithWatcherTicker(tickers.New), WithPollInterval(time.Second))
	watcher := NewSessionWatcher(api, func(msg string) { terminated <- msg }, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	t.Cleanup(cancel)
	return terminated, tickers, done
}

func pollOnce(t *testing.T, tickers *tickerFactory) {
	t.Helper()
	require.Eventually(t, func() bool { return tickers.count() > 0 }, time.Second, 5*time.Millisecond)
	select {
	case tickers.last(t).ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("watcher did not poll")
	}
}

func TestSessionWatcher_ReportsTakeoverOnce(t *testing.T) {
	api := &scriptedSessionAPI{results: []func() (*dto.SessionValidityResponse, error){
		valid,
		func() (*dto.SessionValidityResponse, error) {
			return &dto.SessionValidityResponse{Valid: false, Message: "signed in on Firefox on Linux"}, nil
		},
	}}
	terminated, tickers, done := runWatcher(t, api)

	pollOnce(t, tickers)

	select {
	case msg := <-terminated:
		assert.Equal(t, "signed in on Firefox on Linux", msg)
	case <-time.After(time.Second):
		t.Fatal("termination not reported")
	}
	assert.NoError(t, <-done)
	assert.Empty(t, terminated)
}

func TestSessionWatcher_TransientErrorsKeepPolling(t *testing.T) {
	api := &scriptedSessionAPI{results: []func() (*dto.SessionValidityResponse, error){
		func() (*dto.SessionValidityResponse, error) { return nil, ErrTransient },
		func() (*dto.SessionValidityResponse, error) {
			return nil, &APIError{StatusCode: 503, Message: "unavailable", kind: ErrTransient}
		},
		func() (*dto.SessionValidityResponse, error) {
			return nil, &APIError{StatusCode: 401, Message: "Session terminated", kind: ErrSessionTerminated}
		},
	}}
	terminated, tickers, done := runWatcher(t, api)

	pollOnce(t, tickers)
	pollOnce(t, tickers)

	select {
	case msg := <-terminated:
		assert.Equal(t, "Session terminated", msg)
	case <-time.After(time.Second):
		t.Fatal("termination not reported")
	}
	assert.NoError(t, <-done)
}

func TestSessionWatcher_LocksScheduler(t *testing.T) {
	h := startScheduler(t, shared.RoleStudent, Hooks{})
	require.NoError(t, h.scheduler.Play())

	api := &scriptedSessionAPI{results: []func() (*dto.SessionValidityResponse, error){
		func() (*dto.SessionValidityResponse, error) { return &dto.SessionValidityResponse{Valid: false}, nil },
	}}
	terminated, _, done := runWatcher(t, api, WithScheduler(h.scheduler))

	select {
	case msg := <-terminated:
		assert.Equal(t, defaultTerminatedMessage, msg)
	case <-time.After(time.Second):
		t.Fatal("termination not reported")
	}
	assert.NoError(t, <-done)

	state, err := h.scheduler.Snapshot()
	require.NoError(t, err)
	assert.True(t, state.Locked)
}

func TestSessionWatcher_StopsOnCancel(t *testing.T) {
	watcher := NewSessionWatcher(&scriptedSessionAPI{}, nil, WithWatcherTicker((&tickerFactory{}).New))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestSessionWatcher_CheckIn(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		var calls int
		watcher := NewSessionWatcher(&scriptedSessionAPI{}, func(string) { calls++ })

		require.NoError(t, watcher.CheckIn(context.Background()))
		assert.Zero(t, calls)
	})

	t.Run("rejected locks the player once", func(t *testing.T) {
		h := startScheduler(t, shared.RoleStudent, Hooks{})
		require.NoError(t, h.scheduler.Play())

		var messages []string
		api := &scriptedSessionAPI{
			checkIn: &dto.CheckInResult{Valid: false, Message: "We could not verify your session. Please sign in again."},
			results: []func() (*dto.SessionValidityResponse, error){
				func() (*dto.SessionValidityResponse, error) { return &dto.SessionValidityResponse{Valid: false}, nil },
			},
		}
		watcher := NewSessionWatcher(api, func(msg string) { messages = append(messages, msg) },
			WithScheduler(h.scheduler), WithWatcherTicker((&tickerFactory{}).New))

		err := watcher.CheckIn(context.Background())
		assert.ErrorIs(t, err, ErrSessionTerminated)

		// a later poll that also sees the session gone does not report again
		require.NoError(t, watcher.Run(context.Background()))
		assert.Equal(t, []string{"We could not verify your session. Please sign in again."}, messages)

		state, err := h.scheduler.Snapshot()
		require.NoError(t, err)
		assert.True(t, state.Locked)
	})

	t.Run("transport errors are returned without terminating", func(t *testing.T) {
		var calls int
		watcher := NewSessionWatcher(&scriptedSessionAPI{checkInErr: ErrTransient}, func(string) { calls++ })

		assert.ErrorIs(t, watcher.CheckIn(context.Background()), ErrTransient)
		assert.Zero(t, calls)
	})

	t.Run("unauthorized response terminates", func(t *testing.T) {
		var got string
		api := &scriptedSessionAPI{checkInErr: &APIError{StatusCode: 401, Message: "Session rejected", kind: ErrSessionTerminated}}
		watcher := NewSessionWatcher(api, func(msg string) { got = msg })

		assert.ErrorIs(t, watcher.CheckIn(context.Background()), ErrSessionTerminated)
		assert.Equal(t, "Session rejected", got)
	})
}
