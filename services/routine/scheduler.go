package routine

import (
	"context"
	"encoding/json"
	"time"

	"timeledger/pkg/config"
	"timeledger/pkg/queue"
	"timeledger/services/task"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scheduler pre-materializes every known user's routines shortly after
// midnight so the first dashboard request of the day rarely has to.
type Scheduler struct {
	enqueuer queue.Enqueuer
	repo     task.Repository
	hour     int
	minute   int
	done     chan struct{}
}

type SchedulerParams struct {
	fx.In
	DB       *gorm.DB
	Enqueuer queue.Enqueuer
	Config   *config.Config
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return &Scheduler{
		enqueuer: p.Enqueuer,
		repo:     task.NewRepository(p.DB),
		hour:     p.Config.Scheduler.Hour,
		minute:   p.Config.Scheduler.Minute,
		done:     make(chan struct{}),
	}
}

type materializePayload struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"`
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler, cfg *config.Config) {
	if !cfg.Scheduler.Enable {
		return
	}

	// The OnStart context only spans the start phase and is cancelled as soon
	// as the app is up; the loop needs its own lifetime, ended from OnStop.
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.run(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-s.done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	zap.L().Info("[Scheduler] started routine materialization scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, s.hour, s.minute)

		sleepDuration := next.Sub(now)
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", sleepDuration),
		)
		select {
		case <-time.After(sleepDuration):
			s.runDaily(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	start := time.Now()
	zap.L().Info("[Scheduler] Running daily materialization enqueue job")

	if err := s.EnqueueAllUsers(ctx, start); err != nil {
		zap.L().Error("[Scheduler] failed enqueue all users", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] Finished enqueue all users",
		zap.Duration("duration", time.Since(start)),
	)
}

// EnqueueAllUsers creates one materialization job per user with any history.
// The handler is idempotent, so overlap with request-path materialization is
// harmless.
func (s *Scheduler) EnqueueAllUsers(ctx context.Context, day time.Time) error {
	userIDs, err := s.repo.DistinctUserIDs(ctx)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		payload, _ := json.Marshal(materializePayload{
			UserID: userID,
			Date:   task.DayKey(day),
		})

		if _, err := s.enqueuer.Enqueue(asynq.NewTask(queue.RoutineMaterializeDay, payload)); err != nil {
			zap.L().Error("[Scheduler] failed to enqueue materialization job",
				zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
	}

	zap.L().Info("[Scheduler] enqueued materialization jobs", zap.Int("users", len(userIDs)))
	return nil
}

// HandleMaterializeTask runs on the asynq worker.
func (m *Materializer) HandleMaterializeTask(ctx context.Context, t *asynq.Task) error {
	var payload materializePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid materialization payload", zap.Error(err))
		return err
	}

	day := m.clock.Now()
	if payload.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.Date, day.Location())
		if err != nil {
			zap.L().Error("invalid materialization date", zap.String("date", payload.Date), zap.Error(err))
			return err
		}
		day = parsed
	}

	_, err := m.EnsureDay(ctx, payload.UserID, day)
	return err
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
