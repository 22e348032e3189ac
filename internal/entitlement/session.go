package entitlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/aahar/internal/models"
)

// SessionStore хранит CurrentUserSession под ключом aahar_user.
// Повреждённая запись считается отсутствующей.
type SessionStore struct {
	store Store
}

// NewSessionStore создаёт SessionStore поверх store.
func NewSessionStore(store Store) *SessionStore {
	return &SessionStore{store: store}
}

// Load возвращает текущую сессию или nil, если её нет.
func (s *SessionStore) Load(ctx context.Context) (*models.CurrentUserSession, error) {
	const op = "entitlement.SessionStore.Load"
	raw, found, err := s.store.Read(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	if !found {
		return nil, nil
	}
	var sess models.CurrentUserSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, nil
	}
	return &sess, nil
}

// Session реализует provider.SessionSource.
func (s *SessionStore) Session(ctx context.Context) (*models.CurrentUserSession, error) {
	return s.Load(ctx)
}

// Save перезаписывает сессию.
func (s *SessionStore) Save(ctx context.Context, sess models.CurrentUserSession) error {
	const op = "entitlement.SessionStore.Save"
	sess.Email = NormalizeEmail(sess.Email)
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Write(ctx, KeyUser, string(payload)); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	return nil
}

// Clear удаляет сессию.
func (s *SessionStore) Clear(ctx context.Context) error {
	const op = "entitlement.SessionStore.Clear"
	if err := s.store.Delete(ctx, KeyUser); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	return nil
}
