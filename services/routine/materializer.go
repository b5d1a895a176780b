package routine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"timeledger/pkg/clock"
	"timeledger/pkg/errutil"
	"timeledger/services/task"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// dayLock is the advisory guard around one (user, day) materialization. It
// only keeps racing first-requests from all opening a write transaction; the
// serializable transaction below is the correctness boundary.
type dayLock interface {
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string)
}

type redisDayLock struct {
	rdb *redis.Client
}

func (l *redisDayLock) TryLock(ctx context.Context, key string) (bool, error) {
	return l.rdb.SetNX(ctx, key, 1, 24*time.Hour).Result()
}

func (l *redisDayLock) Unlock(ctx context.Context, key string) {
	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		zap.L().Warn("failed to release materialization guard",
			zap.String("key", key), zap.Error(err))
	}
}

// Materializer guarantees that by the time any read observes a date, that
// date's routine tasks already exist, generated at most once per (user, day).
type Materializer struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock clock.Clock
	repo  task.Repository
	lock  dayLock
}

type MaterializerParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Clock clock.Clock
	Redis *redis.Client `optional:"true"`
}

func NewMaterializer(p MaterializerParams) *Materializer {
	m := &Materializer{
		db:    p.DB,
		node:  p.Node,
		clock: p.Clock,
		repo:  task.NewRepository(p.DB),
	}
	if p.Redis != nil {
		m.lock = &redisDayLock{rdb: p.Redis}
	}
	return m
}

// EnsureDay materializes the day's routine instances for the user unless the
// day already has tasks. Returns how many instances were created. Calling it
// any number of times after the first successful call is a no-op; losers of a
// concurrent race recover by re-reading the winner's rows.
func (m *Materializer) EnsureDay(ctx context.Context, userID int64, day time.Time) (int, error) {
	day = task.DateOf(day)

	existing, err := m.repo.FindByDate(ctx, userID, day)
	if err != nil {
		return 0, errutil.Internal("failed to check existing tasks", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	lockKey := fmt.Sprintf("routine:materialize:%d:%s", userID, task.DayKey(day))
	if m.lock != nil {
		acquired, err := m.lock.TryLock(ctx, lockKey)
		if err == nil && !acquired {
			// Another materialization holds the guard. Trust the store over
			// the lock: the day is done only if its rows are visible,
			// otherwise fall through and let the transaction decide. A guard
			// left behind by a failed winner must not stall the day.
			rows, readErr := m.repo.FindByDate(ctx, userID, day)
			if readErr == nil && len(rows) > 0 {
				zap.L().Debug("materialization already completed",
					zap.Int64("user_id", userID), zap.String("day", task.DayKey(day)))
				return 0, nil
			}
		}
	}

	var created int
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.repo.WithTrx(tx)

		existing, err := repo.FindByDate(ctx, userID, day)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		batch, err := m.buildDay(ctx, repo, userID, day)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for _, t := range batch {
			t.ID = m.node.Generate().Int64()
		}
		if err := repo.BatchCreate(ctx, batch); err != nil {
			return err
		}

		created = len(batch)
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		// Losing the race is not a failure: if the winner's rows are visible
		// now, the day is materialized and the conflict stays internal.
		if rows, readErr := m.repo.FindByDate(ctx, userID, day); readErr == nil && len(rows) > 0 {
			zap.L().Warn("materialization conflict recovered",
				zap.Int64("user_id", userID), zap.String("day", task.DayKey(day)), zap.Error(err))
			return 0, nil
		}
		if m.lock != nil {
			// Nothing persisted: release the guard so the next call retries
			// instead of waiting out the TTL.
			m.lock.Unlock(ctx, lockKey)
		}
		zap.L().Error("failed to materialize routines",
			zap.Int64("user_id", userID), zap.String("day", task.DayKey(day)), zap.Error(err))
		return 0, errutil.Internal("failed to materialize routines", err)
	}

	if created > 0 {
		zap.L().Info("materialized routines",
			zap.Int64("user_id", userID), zap.String("day", task.DayKey(day)), zap.Int("count", created))
	}
	return created, nil
}

func (m *Materializer) buildDay(ctx context.Context, repo task.Repository, userID int64, day time.Time) ([]*task.Task, error) {
	templates, err := repo.LatestRoutineTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := repo.CountAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	// True first-ever visit: seed the starter routines.
	if len(templates) == 0 && total == 0 {
		return DefaultTasks(userID, day), nil
	}

	batch := make([]*task.Task, 0, len(templates))
	for i := range templates {
		tmpl := &templates[i]
		if !Fires(tmpl, day) {
			continue
		}
		instance, err := Materialize(tmpl, day)
		if err != nil {
			zap.L().Warn("skipping unmaterializable routine",
				zap.Int64("user_id", userID), zap.String("name", tmpl.Name), zap.Error(err))
			continue
		}
		batch = append(batch, instance)
	}
	return batch, nil
}
