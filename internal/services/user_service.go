package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UserStore finds and creates local user rows.
type UserStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// UserService provisions local users for verified identities.
type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Provision returns the caller's user row, creating it on first sight.
// Concurrent first requests converge on the same row.
func (s *UserService) Provision(ctx context.Context) (*models.User, error) {
	identity, ok := IdentityFrom(ctx)
	if !ok {
		return nil, errUnauthorized()
	}

	user, err := s.users.FindByExternalID(ctx, identity.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errInternal(err, "load user")
	}

	now := time.Now().UTC()
	err = s.users.Create(ctx, &models.User{
		ID:         uuid.NewString(),
		ExternalID: identity.ExternalID,
		Name:       identity.Name,
		Email:      identity.Email,
		ImageURL:   identity.ImageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, errInternal(err, "create user")
	}

	user, err = s.users.FindByExternalID(ctx, identity.ExternalID)
	if err != nil {
		return nil, errInternal(err, "load user")
	}
	logger.Log.WithFields(logrus.Fields{"user_id": user.ID}).Info("provisioned user")
	return user, nil
}
