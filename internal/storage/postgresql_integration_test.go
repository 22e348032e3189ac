package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/aahar/internal/migrations"
	"github.com/magabrotheeeer/aahar/internal/models"
)

func setupTestDB(t *testing.T) *Storage {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("aahar"),
		postgres.WithUsername("aahar"),
		postgres.WithPassword("aahar"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, filepath.Join(root, "migrations")))
	require.NoError(t, s.CheckDatabaseReady(ctx))
	return s
}

func TestStorage_AppointmentsOrderedByDate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for _, a := range []models.Appointment{
		{UserEmail: "a@x.com", DoctorID: "dr-2", DoctorName: "Dr. Iyer", Date: "2025-08-10", Time: "11:00", Type: "clinic"},
		{UserEmail: "a@x.com", DoctorID: "dr-1", DoctorName: "Dr. Rao", Date: "2025-07-01", Time: "15:30", Type: "video"},
		{UserEmail: "a@x.com", DoctorID: "dr-1", DoctorName: "Dr. Rao", Date: "2025-07-01", Time: "09:00", Type: "video"},
		{UserEmail: "b@y.com", DoctorID: "dr-1", DoctorName: "Dr. Rao", Date: "2025-06-01", Time: "09:00", Type: "video"},
	} {
		_, err := s.CreateAppointment(ctx, a)
		require.NoError(t, err)
	}

	list, err := s.ListAppointments(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"2025-07-01 09:00", "2025-07-01 15:30", "2025-08-10 11:00"}, []string{
		list[0].Date + " " + list[0].Time,
		list[1].Date + " " + list[1].Time,
		list[2].Date + " " + list[2].Time,
	})

	exists, err := s.AppointmentExists(ctx, models.Appointment{UserEmail: "a@x.com", DoctorID: "dr-1", Date: "2025-07-01", Time: "09:00"})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.AppointmentExists(ctx, models.Appointment{UserEmail: "a@x.com", DoctorID: "dr-2", Date: "2025-07-01", Time: "09:00"})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStorage_UsersAndRecipes(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.RegisterUser(ctx, models.User{Email: "a@x.com", Name: "Meera", PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = s.RegisterUser(ctx, models.User{Email: "a@x.com", Name: "Other", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrUserExists)

	saved, err := s.SaveRecipe(ctx, models.SavedRecipe{UserEmail: "a@x.com", RecipeID: "ragi", RecipeTitle: "Ragi porridge"})
	require.NoError(t, err)
	assert.True(t, saved)
	saved, err = s.SaveRecipe(ctx, models.SavedRecipe{UserEmail: "a@x.com", RecipeID: "ragi", RecipeTitle: "Ragi porridge"})
	require.NoError(t, err)
	assert.False(t, saved)

	list, err := s.ListSavedRecipes(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteUser(ctx, "a@x.com"))
	_, err = s.GetUserByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	list, err = s.ListSavedRecipes(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, list)
}
