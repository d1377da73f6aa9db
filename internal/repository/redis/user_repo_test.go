package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

func newTestUserRepo(t *testing.T) (*UserRepo, *KVStore) {
	t.Helper()
	kv, _ := newTestKVStore(t)
	clock := newTestClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewUserRepo(kv, Options{Clock: clock.Now, MaxCommitAttempts: 50}), kv
}

// leaderboardFor возвращает все записи лидерборда пользователя
func leaderboardFor(t *testing.T, repo *UserRepo, userID string) []entity.LeaderboardEntry {
	t.Helper()
	board, err := repo.GetLeaderboard(context.Background(), 1000)
	require.NoError(t, err)
	var out []entity.LeaderboardEntry
	for _, e := range board {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func TestUserRepo_CreateAndGet(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, entity.User{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())
	assert.NotNil(t, created.Stats.Categories)

	got, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)

	_, err = repo.Create(ctx, entity.User{UserID: "alice"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	_, err = repo.GetByID(ctx, "bob")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.Create(ctx, entity.User{UserID: "bad:id"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Запись лидерборда не создается при регистрации
	assert.Empty(t, leaderboardFor(t, repo, "alice"))
}

func TestUserRepo_ConcurrentCreateSameID(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	const attempts = 2
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, entity.User{UserID: "racer", DisplayName: "Racer"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, duplicates)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Empty(t, leaderboardFor(t, repo, "racer"))
}

func TestUserRepo_LeaderboardOrder(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	for i := 0; i <= 10; i++ {
		id := strconv.Itoa(i)
		_, err := repo.Create(ctx, entity.User{UserID: id, DisplayName: "user " + id})
		require.NoError(t, err)
		_, err = repo.Update(ctx, entity.UserUpdate{
			UserID: id,
			Stats:  &entity.StatsDelta{QuestionsAnswered: i, QuestionsCorrect: i},
		}, nil, nil)
		require.NoError(t, err)
	}

	board, err := repo.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 11)
	assert.Equal(t, "10", board[0].UserID)
	assert.Equal(t, 10, board[0].QuestionsCorrect)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].QuestionsCorrect, board[i].QuestionsCorrect)
	}
	assert.Equal(t, "0", board[10].UserID)

	top3, err := repo.GetLeaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top3, 3)
	assert.Equal(t, []string{"10", "9", "8"}, []string{top3[0].UserID, top3[1].UserID, top3[2].UserID})
}

func TestUserRepo_UpdateKeepsSingleLeaderboardEntry(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, entity.User{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)

	steps := []entity.StatsDelta{
		{QuestionsAnswered: 1, QuestionsCorrect: 1},
		{QuestionsAnswered: 1},
		{QuestionsAnswered: 3, QuestionsCorrect: 2},
	}
	for _, delta := range steps {
		delta := delta
		user, err := repo.Update(ctx, entity.UserUpdate{UserID: "alice", Stats: &delta}, nil, nil)
		require.NoError(t, err)

		entries := leaderboardFor(t, repo, "alice")
		require.Len(t, entries, 1)
		assert.Equal(t, user.Stats.QuestionsCorrect, entries[0].QuestionsCorrect)
	}

	// Смена имени без изменения счета перезаписывает запись на месте
	name := "Alice B."
	_, err = repo.Update(ctx, entity.UserUpdate{UserID: "alice", DisplayName: &name}, nil, nil)
	require.NoError(t, err)
	entries := leaderboardFor(t, repo, "alice")
	require.Len(t, entries, 1)
	assert.Equal(t, "Alice B.", entries[0].DisplayName)
	assert.Equal(t, 3, entries[0].QuestionsCorrect)
}

func TestUserRepo_UpdateCategoryMerge(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, entity.User{UserID: "alice"})
	require.NoError(t, err)

	user, err := repo.Update(ctx, entity.UserUpdate{
		UserID: "alice",
		Stats: &entity.StatsDelta{
			QuestionsAnswered: 2,
			QuestionsCorrect:  1,
			Categories: map[string]entity.CategoryStats{
				"History": {QuestionsAnswered: 1, QuestionsCorrect: 0},
			},
		},
	}, strPtr("Geography"), boolPtr(true))
	require.NoError(t, err)

	assert.Equal(t, 2, user.Stats.QuestionsAnswered)
	assert.Equal(t, 1, user.Stats.QuestionsCorrect)
	assert.Equal(t, entity.CategoryStats{QuestionsAnswered: 1, QuestionsCorrect: 0}, user.Stats.Categories["History"])
	assert.Equal(t, entity.CategoryStats{QuestionsAnswered: 1, QuestionsCorrect: 1}, user.Stats.Categories["Geography"])

	user, err = repo.Update(ctx, entity.UserUpdate{UserID: "alice"}, strPtr("Geography"), boolPtr(false))
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryStats{QuestionsAnswered: 2, QuestionsCorrect: 1}, user.Stats.Categories["Geography"])
}

func TestUserRepo_UpdateRejectsInvalidStats(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, entity.User{UserID: "alice"})
	require.NoError(t, err)

	_, err = repo.Update(ctx, entity.UserUpdate{
		UserID: "alice",
		Stats:  &entity.StatsDelta{QuestionsCorrect: 1},
	}, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	user, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, user.Stats.QuestionsCorrect)

	_, err = repo.Update(ctx, entity.UserUpdate{UserID: "ghost"}, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepo_ConcurrentUpdatesAreNotLost(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, entity.User{UserID: "alice"})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, entity.UserUpdate{
				UserID: "alice",
				Stats:  &entity.StatsDelta{QuestionsAnswered: 1, QuestionsCorrect: 1},
			}, nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, workers, user.Stats.QuestionsAnswered)
	assert.Equal(t, workers, user.Stats.QuestionsCorrect)

	entries := leaderboardFor(t, repo, "alice")
	require.Len(t, entries, 1)
	assert.Equal(t, workers, entries[0].QuestionsCorrect)
}

func TestUserRepo_DeleteRemovesLeaderboardEntry(t *testing.T) {
	repo, _ := newTestUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, entity.User{UserID: "alice"})
	require.NoError(t, err)
	_, err = repo.Update(ctx, entity.UserUpdate{
		UserID: "alice",
		Stats:  &entity.StatsDelta{QuestionsAnswered: 4, QuestionsCorrect: 4},
	}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "alice"))
	assert.Empty(t, leaderboardFor(t, repo, "alice"))

	err = repo.Delete(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepo_RebuildLeaderboard(t *testing.T) {
	repo, kv := newTestUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, entity.User{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)
	_, err = repo.Update(ctx, entity.UserUpdate{
		UserID: "alice",
		Stats:  &entity.StatsDelta{QuestionsAnswered: 5, QuestionsCorrect: 3},
	}, nil, nil)
	require.NoError(t, err)

	// Порча индекса: лишняя запись с чужим счетом, сирота, и пропавшая запись
	require.NoError(t, kv.Set(ctx, leaderboardKey(9, "alice"), []byte(`{"user_id":"alice","display_name":"Alice","questions_correct":9}`), 0))
	require.NoError(t, kv.Set(ctx, leaderboardKey(2, "ghost"), []byte(`{"user_id":"ghost","display_name":"Ghost","questions_correct":2}`), 0))

	_, err = repo.Create(ctx, entity.User{UserID: "bob", DisplayName: "Bob"})
	require.NoError(t, err)
	_, err = repo.Update(ctx, entity.UserUpdate{
		UserID: "bob",
		Stats:  &entity.StatsDelta{QuestionsAnswered: 2, QuestionsCorrect: 2},
	}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, kv.Delete(ctx, leaderboardKey(2, "bob")))

	fixed, err := repo.RebuildLeaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, fixed)

	board, err := repo.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alice", board[0].UserID)
	assert.Equal(t, 3, board[0].QuestionsCorrect)
	assert.Equal(t, "bob", board[1].UserID)

	// Повторный проход ничего не меняет
	fixed, err = repo.RebuildLeaderboard(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestUserRepo_LeaderboardReadDuringScoreMove(t *testing.T) {
	readerKV, readerClient, writerKV := newKVStorePair(t)
	reader := NewUserRepo(readerKV, Options{})
	writer := NewUserRepo(writerKV, Options{MaxCommitAttempts: 50})
	ctx := context.Background()

	_, err := writer.Create(ctx, entity.User{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)
	_, err = writer.Update(ctx, entity.UserUpdate{UserID: "alice", Stats: &entity.StatsDelta{QuestionsAnswered: 1, QuestionsCorrect: 1}}, nil, nil)
	require.NoError(t, err)

	// Счет 1 -> 2 меняется, пока идет чтение лидерборда
	var moveErr error
	readerClient.AddHook(&onceHook{names: scriptCommands, fn: func() {
		_, moveErr = writer.Update(ctx, entity.UserUpdate{UserID: "alice", Stats: &entity.StatsDelta{QuestionsAnswered: 1, QuestionsCorrect: 1}}, nil, nil)
	}})

	board, err := reader.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, moveErr)
	require.Len(t, board, 1)
	assert.Equal(t, "alice", board[0].UserID)
	assert.Equal(t, 2, board[0].QuestionsCorrect)
}

func TestLeaderboardKey_OrdersLargeScores(t *testing.T) {
	scores := []int{0, 7, 9_999_999_999, 10_000_000_000, 1 << 62}
	for i := 1; i < len(scores); i++ {
		assert.Less(t, leaderboardKey(scores[i-1], "u"), leaderboardKey(scores[i], "u"))
	}
	assert.Equal(t, "leaderboard:0000000000000000042:alice", leaderboardKey(42, "alice"))
}
