package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// StreakRepo реализует repository.StreakRepository.
// TTL ключа в Redis выставляется при записи, но это только подсказка для очистки:
// истечение по expires_on проверяется при каждом чтении.
type StreakRepo struct {
	kv     *KVStore
	opts   Options
	window entity.StreakWindow
}

// NewStreakRepo создает хранилище серий. Нулевое окно заменяется окном по умолчанию (24ч/48ч).
func NewStreakRepo(kv *KVStore, window entity.StreakWindow, opts Options) *StreakRepo {
	if window.Unit <= 0 || window.Length <= window.Unit {
		window = entity.DefaultStreakWindow()
	}
	return &StreakRepo{kv: kv, opts: opts.withDefaults(), window: window}
}

// Get возвращает живую серию. Истекшая запись удаляется и считается отсутствующей.
// Если удаление конфликтует с параллельным Update, запись перечитывается.
func (r *StreakRepo) Get(ctx context.Context, userID string) (*entity.Streak, error) {
	var live *entity.Streak
	err := RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		streak, version, err := r.read(ctx, userID)
		if err != nil {
			return err
		}
		if !streak.IsExpired(r.opts.now()) {
			live = streak
			return nil
		}
		return r.expire(ctx, userID, version)
	})
	if err != nil {
		return nil, err
	}
	if live == nil {
		return nil, fmt.Errorf("streak %s expired: %w", userID, apperrors.ErrNotFound)
	}
	return live, nil
}

// Update засчитывает активность пользователя: создает серию, продлевает её,
// если прошла хотя бы одна единица окна, или возвращает без изменений.
func (r *StreakRepo) Update(ctx context.Context, userID string) (*entity.Streak, error) {
	var result *entity.Streak
	err := RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		now := r.opts.now()

		current, version, err := r.read(ctx, userID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		var next entity.Streak
		switch {
		case current == nil || current.IsExpired(now):
			next = entity.NewStreak(userID, now, r.window)
		case current.CanExtend(now, r.window):
			next = current.Extended(now, r.window)
		default:
			// Активность в той же единице окна
			result = current
			return nil
		}

		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode streak: %w", err)
		}
		key := streakKey(userID)
		if err := r.kv.Commit(ctx,
			[]Check{{Key: key, Version: version}},
			[]Mutation{SetMutation(key, raw, next.ExpiresOn.Sub(now))},
		); err != nil {
			return err
		}

		r.opts.Logger.Debug("streak updated", zap.String("user_id", userID), zap.Int("days", next.Days))
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete удаляет серию (внешний сброс)
func (r *StreakRepo) Delete(ctx context.Context, userID string) error {
	return r.kv.Delete(ctx, streakKey(userID))
}

// SweepExpired удаляет все логически истекшие серии и возвращает их количество
func (r *StreakRepo) SweepExpired(ctx context.Context) (int, error) {
	entries, err := r.kv.Scan(ctx, streakPrefix, ScanOptions{})
	if err != nil {
		return 0, err
	}

	now := r.opts.now()
	removed := 0
	for _, entry := range entries {
		var streak entity.Streak
		if err := json.Unmarshal(entry.Value, &streak); err != nil {
			r.opts.Logger.Warn("skipping undecodable streak", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		if !streak.IsExpired(now) {
			continue
		}
		err := r.expire(ctx, streak.UserID, entry.Version)
		switch {
		case errors.Is(err, apperrors.ErrConflict):
			// Серию успели продлить
			continue
		case err != nil:
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (r *StreakRepo) read(ctx context.Context, userID string) (*entity.Streak, string, error) {
	var streak entity.Streak
	version, err := r.kv.getJSON(ctx, streakKey(userID), &streak)
	if err != nil {
		return nil, "", err
	}
	return &streak, version, nil
}

// expire удаляет прочитанную запись только если её не успели продлить.
// ErrConflict означает, что параллельный Update уже записал новую серию.
func (r *StreakRepo) expire(ctx context.Context, userID, version string) error {
	key := streakKey(userID)
	if err := r.kv.Commit(ctx, []Check{{Key: key, Version: version}}, []Mutation{DeleteMutation(key)}); err != nil {
		return err
	}
	r.opts.Logger.Debug("expired streak removed", zap.String("user_id", userID))
	return nil
}
