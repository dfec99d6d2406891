package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arenaone/arena/repositories"
	"github.com/stretchr/testify/assert"
)

type fakeLocker struct {
	busy     bool
	acquired int
	released int
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if l.busy {
		return nil, false, nil
	}
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

type fakeLifecycleRepo struct {
	repositories.TournamentRepository
	opened, closed int
}

func (r *fakeLifecycleRepo) OpenDueRegistrations(ctx context.Context, now time.Time) (int, error) {
	r.opened++
	return 1, nil
}

func (r *fakeLifecycleRepo) CloseDueRegistrations(ctx context.Context, now time.Time) (int, error) {
	r.closed++
	return 0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCycleDrivesBothTransitions(t *testing.T) {
	repo := &fakeLifecycleRepo{}
	locker := &fakeLocker{}
	s := NewLifecycleScheduler(repo, locker, testLogger())

	s.RunCycle(context.Background(), time.Now().UTC())

	assert.Equal(t, 1, repo.opened)
	assert.Equal(t, 1, repo.closed)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released, "lock must be released after the cycle")
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	repo := &fakeLifecycleRepo{}
	locker := &fakeLocker{busy: true}
	s := NewLifecycleScheduler(repo, locker, testLogger())

	s.RunCycle(context.Background(), time.Now().UTC())

	assert.Zero(t, repo.opened)
	assert.Zero(t, repo.closed)
}

func TestRunCycleIsRepeatable(t *testing.T) {
	repo := &fakeLifecycleRepo{}
	locker := &fakeLocker{}
	s := NewLifecycleScheduler(repo, locker, testLogger())

	now := time.Now().UTC()
	s.RunCycle(context.Background(), now)
	s.RunCycle(context.Background(), now.Add(time.Minute))

	// Переходы — bulk UPDATE по условию, повторный запуск безопасен.
	assert.Equal(t, 2, repo.opened)
	assert.Equal(t, 2, repo.closed)
	assert.Equal(t, 2, locker.released)
}
