package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

func TestUser_Validate(t *testing.T) {
	assert.NoError(t, (&User{UserID: "auth0|abc"}).Validate())
	assert.ErrorIs(t, (&User{UserID: " "}).Validate(), apperrors.ErrValidation)
	assert.ErrorIs(t, (&User{UserID: "a:b"}).Validate(), apperrors.ErrValidation)
	assert.ErrorIs(t, (&User{UserID: "a*"}).Validate(), apperrors.ErrValidation)

	broken := User{UserID: "u", Stats: UserStats{QuestionsAnswered: 1, QuestionsCorrect: 2}}
	assert.ErrorIs(t, broken.Validate(), apperrors.ErrValidation)
}

func TestUser_ApplyUpdate_AddsDeltas(t *testing.T) {
	// Arrange
	user := User{
		UserID:      "u1",
		DisplayName: "Old",
		Stats: UserStats{
			QuestionsAnswered: 4,
			QuestionsCorrect:  2,
			Categories:        map[string]CategoryStats{"History": {QuestionsAnswered: 4, QuestionsCorrect: 2}},
		},
	}
	name := "New"

	// Act
	err := user.ApplyUpdate(UserUpdate{
		UserID:      "u1",
		DisplayName: &name,
		Stats: &StatsDelta{
			QuestionsAnswered: 2,
			QuestionsCorrect:  1,
			Categories:        map[string]CategoryStats{"History": {QuestionsAnswered: 1, QuestionsCorrect: 1}},
		},
	}, nil, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "New", user.DisplayName)
	assert.Equal(t, 6, user.Stats.QuestionsAnswered)
	assert.Equal(t, 3, user.Stats.QuestionsCorrect)
	assert.Equal(t, CategoryStats{QuestionsAnswered: 5, QuestionsCorrect: 3}, user.Stats.Categories["History"])
}

func TestUser_ApplyUpdate_ImplicitCategoryIncrement(t *testing.T) {
	// Arrange
	user := User{UserID: "u1"}
	category := "Geography"
	correct := true
	wrong := false

	// Act
	require.NoError(t, user.ApplyUpdate(UserUpdate{UserID: "u1"}, &category, &correct))
	require.NoError(t, user.ApplyUpdate(UserUpdate{UserID: "u1"}, &category, &wrong))
	require.NoError(t, user.ApplyUpdate(UserUpdate{UserID: "u1"}, &category, nil))

	// Assert: неявное приращение касается только категории
	assert.Equal(t, CategoryStats{QuestionsAnswered: 3, QuestionsCorrect: 1}, user.Stats.Categories["Geography"])
	assert.Zero(t, user.Stats.QuestionsAnswered)
}

func TestUser_ApplyUpdate_BothMechanismsAreAdditive(t *testing.T) {
	user := User{UserID: "u1"}
	category := "Geography"
	correct := true

	err := user.ApplyUpdate(UserUpdate{
		UserID: "u1",
		Stats: &StatsDelta{
			QuestionsAnswered: 1,
			QuestionsCorrect:  1,
			Categories:        map[string]CategoryStats{"Geography": {QuestionsAnswered: 1, QuestionsCorrect: 1}},
		},
	}, &category, &correct)

	require.NoError(t, err)
	assert.Equal(t, CategoryStats{QuestionsAnswered: 2, QuestionsCorrect: 2}, user.Stats.Categories["Geography"])
}

func TestUser_ApplyUpdate_RejectsCorrectAboveAnswered(t *testing.T) {
	user := User{UserID: "u1"}

	err := user.ApplyUpdate(UserUpdate{UserID: "u1", Stats: &StatsDelta{QuestionsCorrect: 1}}, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = (&User{UserID: "u1"}).ApplyUpdate(UserUpdate{
		UserID: "u1",
		Stats:  &StatsDelta{QuestionsAnswered: -1},
	}, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUser_LeaderboardEntry(t *testing.T) {
	user := User{UserID: "u1", DisplayName: "Name", Stats: UserStats{QuestionsAnswered: 9, QuestionsCorrect: 7}}
	assert.Equal(t, LeaderboardEntry{UserID: "u1", DisplayName: "Name", QuestionsCorrect: 7}, user.LeaderboardEntry())
}
