package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

const defaultLeaderboardLimit = 100

// UserRepo реализует repository.UserRepository.
// Запись лидерборда - денормализованная копия (user_id, display_name, questions_correct),
// счет которой встроен в ключ. Она меняется только в одном коммите с пользователем.
type UserRepo struct {
	kv   *KVStore
	opts Options
}

// NewUserRepo создает хранилище пользователей
func NewUserRepo(kv *KVStore, opts Options) *UserRepo {
	return &UserRepo{kv: kv, opts: opts.withDefaults()}
}

// Create сохраняет нового пользователя. Предусловие "ключ отсутствует" проверяется
// в самом коммите, поэтому из параллельных попыток успешна ровно одна.
// Запись лидерборда не создается до первого обновления статистики.
func (r *UserRepo) Create(ctx context.Context, user entity.User) (*entity.User, error) {
	user.UserID = strings.TrimSpace(user.UserID)
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.opts.now()
	}
	if user.Stats.Categories == nil {
		user.Stats.Categories = map[string]entity.CategoryStats{}
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}

	key := userKey(user.UserID)
	err = r.kv.Commit(ctx, []Check{{Key: key}}, []Mutation{SetMutation(key, raw, 0)})
	if errors.Is(err, apperrors.ErrConflict) {
		return nil, fmt.Errorf("user %s: %w", user.UserID, apperrors.ErrAlreadyExists)
	}
	if err != nil {
		return nil, err
	}

	r.opts.Logger.Info("user created", zap.String("user_id", user.UserID))
	return &user, nil
}

// GetByID возвращает пользователя
func (r *UserRepo) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	var user entity.User
	if _, err := r.kv.getJSON(ctx, userKey(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// List возвращает всех пользователей, упорядоченных по user_id
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	entries, err := r.kv.Scan(ctx, userPrefix, ScanOptions{})
	if err != nil {
		return nil, err
	}
	users := make([]entity.User, 0, len(entries))
	for _, entry := range entries {
		var user entity.User
		if err := json.Unmarshal(entry.Value, &user); err != nil {
			r.opts.Logger.Warn("skipping undecodable user", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// Update сливает частичное обновление в пользователя.
// Коммит привязан к версии прочитанной записи; при конфликте цикл чтение-слияние-коммит
// повторяется, поэтому параллельные приращения не теряются.
func (r *UserRepo) Update(ctx context.Context, update entity.UserUpdate, category *string, isCorrect *bool) (*entity.User, error) {
	var result *entity.User
	err := RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		var user entity.User
		version, err := r.kv.getJSON(ctx, userKey(update.UserID), &user)
		if err != nil {
			return err
		}

		oldKey := leaderboardKey(user.Stats.QuestionsCorrect, user.UserID)
		oldVersion, err := r.kv.versionOrAbsent(ctx, oldKey)
		if err != nil {
			return err
		}

		if err := user.ApplyUpdate(update, category, isCorrect); err != nil {
			return err
		}

		userRaw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		entryRaw, err := json.Marshal(user.LeaderboardEntry())
		if err != nil {
			return fmt.Errorf("failed to encode leaderboard entry: %w", err)
		}

		newKey := leaderboardKey(user.Stats.QuestionsCorrect, user.UserID)
		checks := []Check{
			{Key: userKey(user.UserID), Version: version},
			{Key: oldKey, Version: oldVersion},
		}
		mutations := []Mutation{SetMutation(userKey(user.UserID), userRaw, 0)}
		// Ключ со старым счетом удаляется только если счет изменился
		if newKey != oldKey && oldVersion != "" {
			mutations = append(mutations, DeleteMutation(oldKey))
		}
		mutations = append(mutations, SetMutation(newKey, entryRaw, 0))

		if err := r.kv.Commit(ctx, checks, mutations); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				r.opts.Logger.Debug("user update conflicted, retrying", zap.String("user_id", user.UserID))
			}
			return err
		}
		result = &user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete удаляет пользователя вместе с его записью лидерборда
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	return RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		var user entity.User
		version, err := r.kv.getJSON(ctx, userKey(userID), &user)
		if err != nil {
			return err
		}
		if err := r.kv.Commit(ctx,
			[]Check{{Key: userKey(userID), Version: version}},
			[]Mutation{
				DeleteMutation(userKey(userID)),
				DeleteMutation(leaderboardKey(user.Stats.QuestionsCorrect, userID)),
			},
		); err != nil {
			return err
		}
		r.opts.Logger.Info("user deleted", zap.String("user_id", userID))
		return nil
	})
}

// GetLeaderboard возвращает записи по убыванию счета. limit <= 0 означает 100.
// При равном счете порядок определяется user_id (тоже по убыванию).
func (r *UserRepo) GetLeaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	entries, err := r.kv.Scan(ctx, leaderboardPrefix, ScanOptions{Reverse: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	board := make([]entity.LeaderboardEntry, 0, len(entries))
	for _, entry := range entries {
		var item entity.LeaderboardEntry
		if err := json.Unmarshal(entry.Value, &item); err != nil {
			r.opts.Logger.Warn("skipping undecodable leaderboard entry", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		board = append(board, item)
	}
	return board, nil
}

// RebuildLeaderboard приводит индекс в соответствие с пользователями: удаляет записи,
// чей ключ не совпадает с текущим счетом владельца, и создает недостающие для
// пользователей, у которых была запись или есть ненулевая статистика. Возвращает число исправленных записей.
func (r *UserRepo) RebuildLeaderboard(ctx context.Context) (int, error) {
	entries, err := r.kv.Scan(ctx, leaderboardPrefix, ScanOptions{})
	if err != nil {
		return 0, err
	}

	indexed := make(map[string][]Entry)
	for _, entry := range entries {
		var item entity.LeaderboardEntry
		if err := json.Unmarshal(entry.Value, &item); err != nil {
			return 0, fmt.Errorf("failed to decode leaderboard entry %s: %w", entry.Key, err)
		}
		indexed[item.UserID] = append(indexed[item.UserID], entry)
	}

	users, err := r.kv.Scan(ctx, userPrefix, ScanOptions{})
	if err != nil {
		return 0, err
	}

	fixed := 0
	seen := make(map[string]struct{}, len(users))
	for _, userEntry := range users {
		var user entity.User
		if err := json.Unmarshal(userEntry.Value, &user); err != nil {
			return fixed, fmt.Errorf("failed to decode user %s: %w", userEntry.Key, err)
		}
		seen[user.UserID] = struct{}{}

		n, err := r.reindexUser(ctx, user, userEntry.Version, indexed[user.UserID])
		if err != nil {
			return fixed, err
		}
		fixed += n
	}

	// Записи пользователей, которых больше нет
	for userID, stale := range indexed {
		if _, ok := seen[userID]; ok {
			continue
		}
		checks := []Check{{Key: userKey(userID)}}
		var mutations []Mutation
		for _, entry := range stale {
			checks = append(checks, Check{Key: entry.Key, Version: entry.Version})
			mutations = append(mutations, DeleteMutation(entry.Key))
		}
		if err := r.kv.Commit(ctx, checks, mutations); err != nil {
			return fixed, err
		}
		fixed += len(stale)
	}

	r.opts.Logger.Info("leaderboard rebuilt", zap.Int("users", len(users)), zap.Int("fixed", fixed))
	return fixed, nil
}

func (r *UserRepo) reindexUser(ctx context.Context, user entity.User, version string, existing []Entry) (int, error) {
	wantKey := leaderboardKey(user.Stats.QuestionsCorrect, user.UserID)
	wantRaw, err := json.Marshal(user.LeaderboardEntry())
	if err != nil {
		return 0, fmt.Errorf("failed to encode leaderboard entry: %w", err)
	}
	wanted := len(existing) > 0 || user.Stats.QuestionsAnswered > 0 || user.Stats.QuestionsCorrect > 0

	checks := []Check{{Key: userKey(user.UserID), Version: version}}
	var mutations []Mutation
	found := false
	for _, entry := range existing {
		checks = append(checks, Check{Key: entry.Key, Version: entry.Version})
		if entry.Key == wantKey {
			found = true
			if entry.Version != Version(wantRaw) {
				mutations = append(mutations, SetMutation(wantKey, wantRaw, 0))
			}
			continue
		}
		mutations = append(mutations, DeleteMutation(entry.Key))
	}
	if !found && wanted {
		checks = append(checks, Check{Key: wantKey})
		mutations = append(mutations, SetMutation(wantKey, wantRaw, 0))
	}
	if len(mutations) == 0 {
		return 0, nil
	}

	if err := r.kv.Commit(ctx, checks, mutations); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Пользователь изменился параллельно: его Update уже поддерживает индекс
			r.opts.Logger.Debug("skipping concurrently updated user", zap.String("user_id", user.UserID))
			return 0, nil
		}
		return 0, err
	}
	return len(mutations), nil
}
