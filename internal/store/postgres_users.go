package store

import (
	"context"
	"database/sql"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/pkg/errors"
)

const (
	findUserByExternalIDStatement = `
	SELECT id, external_id, name, email, image_url, created_at, updated_at
	FROM users
	WHERE external_id = $1
	`

	insertUserStatement = `
	INSERT INTO users (id, external_id, name, email, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	ON CONFLICT (external_id) DO NOTHING
	`
)

// UserRepo stores users in PostgreSQL.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByExternalID returns the user provisioned for an identity-provider id.
func (r *UserRepo) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var (
		user     models.User
		imageURL sql.NullString
	)
	err := r.db.QueryRowContext(ctx, findUserByExternalIDStatement, externalID).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Name,
		&user.Email,
		&imageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	user.ImageURL = imageURL.String
	return &user, nil
}

// Create inserts user unless a row for the same external id already exists,
// in which case the existing row is left untouched.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, insertUserStatement,
		user.ID,
		user.ExternalID,
		user.Name,
		user.Email,
		user.ImageURL,
		user.CreatedAt,
	)
	return errors.Wrap(err, "insert user")
}
