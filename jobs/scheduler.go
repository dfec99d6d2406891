package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/arenaone/arena/locks"
	"github.com/arenaone/arena/repositories"
	"github.com/robfig/cron/v3"
)

const (
	lifecycleSchedule = "* * * * *"
	lifecycleLockKey  = "jobs:tournament-lifecycle"
	lifecycleLockTTL  = 50 * time.Second
	lifecycleTimeout  = 45 * time.Second
)

// LifecycleScheduler двигает статусы турниров по времени: открывает и
// закрывает регистрацию раз в минуту. Оба перехода — идемпотентные bulk
// UPDATE, порядок между ними не важен.
type LifecycleScheduler struct {
	tournamentRepo repositories.TournamentRepository
	locker         locks.Locker
	cron           *cron.Cron
	logger         *slog.Logger
}

func NewLifecycleScheduler(
	tournamentRepo repositories.TournamentRepository,
	locker locks.Locker,
	logger *slog.Logger,
) *LifecycleScheduler {
	return &LifecycleScheduler{
		tournamentRepo: tournamentRepo,
		locker:         locker,
		cron:           cron.New(),
		logger:         logger,
	}
}

func (s *LifecycleScheduler) Start() error {
	_, err := s.cron.AddFunc(lifecycleSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), lifecycleTimeout)
		defer cancel()
		s.RunCycle(ctx, time.Now().UTC())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("tournament lifecycle scheduler started", slog.String("schedule", lifecycleSchedule))
	return nil
}

func (s *LifecycleScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunCycle выполняет один цикл под распределённым замком. Если замок занят
// другим инстансом, цикл пропускается: следующий запуск через минуту.
func (s *LifecycleScheduler) RunCycle(ctx context.Context, now time.Time) {
	release, ok, err := s.locker.Acquire(ctx, lifecycleLockKey, lifecycleLockTTL)
	if err != nil {
		s.logger.Error("failed to acquire lifecycle lock", slog.Any("error", err))
		return
	}
	if !ok {
		s.logger.Debug("lifecycle lock held by another instance, skipping cycle")
		return
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("failed to release lifecycle lock", slog.Any("error", err))
		}
	}()

	opened, err := s.tournamentRepo.OpenDueRegistrations(ctx, now)
	if err != nil {
		s.logger.Error("failed to open due registrations", slog.Any("error", err))
	} else if opened > 0 {
		s.logger.Info("opened tournament registrations", slog.Int("count", opened))
	}

	closed, err := s.tournamentRepo.CloseDueRegistrations(ctx, now)
	if err != nil {
		s.logger.Error("failed to close due registrations", slog.Any("error", err))
	} else if closed > 0 {
		s.logger.Info("closed tournament registrations", slog.Int("count", closed))
	}
}
