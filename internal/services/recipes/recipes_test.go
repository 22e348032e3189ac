package recipes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aahar/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) SaveRecipe(ctx context.Context, r models.SavedRecipe) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) ListSavedRecipes(ctx context.Context, email string) ([]models.SavedRecipe, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SavedRecipe), args.Error(1)
}

func (m *RepoMock) RemoveSavedRecipe(ctx context.Context, email, recipeID string) (int64, error) {
	args := m.Called(ctx, email, recipeID)
	return args.Get(0).(int64), args.Error(1)
}

func newService(repo *RepoMock) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestService_Save(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		result  bool
		err     error
		want    bool
		wantErr bool
	}{
		{name: "new", result: true, want: true},
		{name: "already saved", result: false, want: false},
		{name: "db error", err: errors.New("db down"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("SaveRecipe", mock.Anything, mock.MatchedBy(func(r models.SavedRecipe) bool {
				return r.UserEmail == "a@x.com" && r.RecipeID == "ragi"
			})).Return(tt.result, tt.err).Once()

			got, err := newService(repo).Save(ctx, models.SavedRecipe{UserEmail: "A@X.com ", RecipeID: "ragi"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_ListAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := new(RepoMock)
	repo.On("ListSavedRecipes", mock.Anything, "a@x.com").Return([]models.SavedRecipe{{RecipeID: "ragi"}}, nil).Once()
	repo.On("RemoveSavedRecipe", mock.Anything, "a@x.com", "ragi").Return(int64(1), nil).Once()
	repo.On("RemoveSavedRecipe", mock.Anything, "a@x.com", "missing").Return(int64(0), nil).Once()
	svc := newService(repo)

	list, err := svc.List(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	removed, err := svc.Remove(ctx, "a@x.com", "ragi")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, "a@x.com", "missing")
	require.NoError(t, err)
	assert.False(t, removed)
	repo.AssertExpectations(t)
}
