package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/headshotly/backend/internal/models"
)

func emptyPreferenceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_id", "model_type", "style", "eye_color", "hair_color", "updated_at"})
}

func TestOnboardingService_State(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewOnboardingService(db, redisClient)

	t.Run("new user starts at the first step", func(t *testing.T) {
		redisMock.ExpectGet("onboarding:user1").RedisNil()
		mock.ExpectQuery("SELECT account_id, model_type, style, eye_color, hair_color, updated_at FROM onboarding_preferences").
			WithArgs("user1").
			WillReturnRows(emptyPreferenceRows())

		state, err := service.State(context.Background(), "user1")
		assert.NoError(t, err)
		assert.Equal(t, "gender", state.Step)
		assert.Nil(t, state.Preferences)
	})

	t.Run("returning user resumes with saved preferences", func(t *testing.T) {
		redisMock.ExpectGet("onboarding:user1").SetVal("hair-color")
		mock.ExpectQuery("SELECT account_id, model_type, style, eye_color, hair_color, updated_at FROM onboarding_preferences").
			WithArgs("user1").
			WillReturnRows(emptyPreferenceRows().
				AddRow("user1", "woman", "professional", "brown", "black", time.Now()))

		state, err := service.State(context.Background(), "user1")
		assert.NoError(t, err)
		assert.Equal(t, "hair-color", state.Step)
		assert.NotNil(t, state.Preferences)
		assert.Equal(t, "woman", state.Preferences.ModelType)
	})
}

func TestOnboardingService_Advance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewOnboardingService(db, redisClient)

	t.Run("advance to the next step", func(t *testing.T) {
		redisMock.ExpectGet("onboarding:user1").SetVal("gender")
		mock.ExpectQuery("SELECT account_id, model_type, style, eye_color, hair_color, updated_at FROM onboarding_preferences").
			WithArgs("user1").
			WillReturnRows(emptyPreferenceRows())
		redisMock.ExpectSet("onboarding:user1", "style", wizardStateTTL).SetVal("OK")

		state, err := service.Advance(context.Background(), "user1", "style")
		assert.NoError(t, err)
		assert.Equal(t, "style", state.Step)
	})

	t.Run("skipping ahead is rejected", func(t *testing.T) {
		redisMock.ExpectGet("onboarding:user1").SetVal("gender")
		mock.ExpectQuery("SELECT account_id, model_type, style, eye_color, hair_color, updated_at FROM onboarding_preferences").
			WithArgs("user1").
			WillReturnRows(emptyPreferenceRows())

		_, err := service.Advance(context.Background(), "user1", "image-upload")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot skip ahead")
	})

	t.Run("moving backward is always allowed", func(t *testing.T) {
		redisMock.ExpectGet("onboarding:user1").SetVal("image-upload")
		mock.ExpectQuery("SELECT account_id, model_type, style, eye_color, hair_color, updated_at FROM onboarding_preferences").
			WithArgs("user1").
			WillReturnRows(emptyPreferenceRows())
		redisMock.ExpectSet("onboarding:user1", "style", wizardStateTTL).SetVal("OK")

		state, err := service.Advance(context.Background(), "user1", "style")
		assert.NoError(t, err)
		assert.Equal(t, "style", state.Step)
	})

	t.Run("unknown step", func(t *testing.T) {
		_, err := service.Advance(context.Background(), "user1", "shoe-size")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown onboarding step")
	})
}

func TestOnboardingService_UpsertPreferences(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, _ := redismock.NewClientMock()
	service := NewOnboardingService(db, redisClient)

	mock.ExpectExec("INSERT INTO onboarding_preferences").
		WithArgs("user1", "woman", "professional", "brown", "black", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.UpsertPreferences(context.Background(), &models.StylePreferences{
		AccountID: "user1",
		ModelType: "woman",
		Style:     "professional",
		EyeColor:  "brown",
		HairColor: "black",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
