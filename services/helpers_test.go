package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexxvives/akademo_api/model"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&testDBSeq, 1))

	db, err := OpenSqlite(dsn)
	require.NoError(t, err)
	require.NoError(t, MigrateModels(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func floatPtr(v float64) *float64 {
	return &v
}

// seedVideo creates an academy, lesson and video. Nil multipliers and
// duration are stored as NULL.
func seedVideo(t *testing.T, db *gorm.DB, videoID string, duration, lessonMultiplier, academyMultiplier *float64) {
	t.Helper()

	now := time.Now()
	academy := model.Academy{ID: "academy_" + videoID, Name: "Academy", DefaultWatchMultiplier: academyMultiplier, CreatedAt: now, UpdatedAt: now}
	lesson := model.Lesson{ID: "lesson_" + videoID, AcademyID: academy.ID, Title: "Lesson", WatchMultiplier: lessonMultiplier, CreatedAt: now, UpdatedAt: now}
	video := model.Video{ID: videoID, LessonID: lesson.ID, Title: "Video", DurationSeconds: duration, CreatedAt: now, UpdatedAt: now}

	require.NoError(t, db.Create(&academy).Error)
	require.NoError(t, db.Omit("Academy").Create(&lesson).Error)
	require.NoError(t, db.Omit("Lesson").Create(&video).Error)
}

func seedUser(t *testing.T, db *gorm.DB, id, role string) {
	t.Helper()

	now := time.Now()
	require.NoError(t, db.Create(&model.User{
		ID:        id,
		Email:     id + "@example.com",
		Name:      id,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore is an in-process KeyValueStore
type memoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		values:  map[string]string{},
		expires: map[string]time.Time{},
	}
}

func (m *memoryStore) expired(key string) bool {
	exp, ok := m.expires[key]
	if ok && time.Now().After(exp) {
		delete(m.values, key)
		delete(m.expires, key)
		return true
	}
	return false
}

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	default:
		b, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		str = string(b)
	}

	m.values[key] = str
	if expiration > 0 {
		m.expires[key] = time.Now().Add(expiration)
	} else {
		delete(m.expires, key)
	}
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.expired(key) {
		return "", nil
	}
	return m.values[key], nil
}

func (m *memoryStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if val == "" {
		return nil
	}
	return sonic.Unmarshal([]byte(val), dest)
}

func (m *memoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, key := range keys {
		delete(m.values, key)
		delete(m.expires, key)
	}
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.expired(key) {
		return false, nil
	}
	_, ok := m.values[key]
	return ok, nil
}

func (m *memoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.expired(key) {
		return -2, nil
	}
	exp, ok := m.expires[key]
	if !ok {
		return -1, nil
	}
	return time.Until(exp), nil
}

func (m *memoryStore) IncrementWithExpiry(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.expired(key)

	var n int64
	fmt.Sscan(m.values[key], &n)
	n++
	m.values[key] = fmt.Sprint(n)
	if _, ok := m.expires[key]; !ok {
		m.expires[key] = time.Now().Add(window)
	}
	return n, nil
}

func (m *memoryStore) SetIfNewer(_ context.Context, key string, version int64, value string, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if !m.expired(key) {
		if current, _, ok := decodeVersioned(m.values[key]); ok && current > version {
			return false, nil
		}
	}

	m.values[key] = encodeVersioned(version, value)
	m.expires[key] = time.Now().Add(expiration)
	return true, nil
}

func (m *memoryStore) GetVersioned(ctx context.Context, key string) (int64, string, bool, error) {
	raw, err := m.Get(ctx, key)
	if err != nil || raw == "" {
		return 0, "", false, err
	}
	version, value, ok := decodeVersioned(raw)
	return version, value, ok, nil
}

func (m *memoryStore) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
