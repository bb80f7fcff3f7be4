package store

import (
	"context"
	"database/sql"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/pkg/errors"
)

const (
	insertCollectionStatement = `
	INSERT INTO collections (id, user_id, name, description, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`

	findCollectionStatement = `
	SELECT id, user_id, name, description, created_at
	FROM collections
	WHERE id = $1 AND user_id = $2
	`

	listCollectionsStatement = `
	SELECT id, user_id, name, description, created_at
	FROM collections
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	deleteCollectionStatement = `DELETE FROM collections WHERE id = $1 AND user_id = $2`
)

// CollectionRepo stores collections in PostgreSQL.
type CollectionRepo struct {
	db *sql.DB
}

func NewCollectionRepo(db *sql.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

func (r *CollectionRepo) Create(ctx context.Context, c *models.Collection) error {
	_, err := r.db.ExecContext(ctx, insertCollectionStatement, c.ID, c.UserID, c.Name, c.Description, c.CreatedAt)
	return errors.Wrap(err, "insert collection")
}

func (r *CollectionRepo) FindOwned(ctx context.Context, ownerID, collectionID string) (*models.Collection, error) {
	if !validID(collectionID) {
		return nil, ErrNotFound
	}
	var (
		c           models.Collection
		description sql.NullString
	)
	err := r.db.QueryRowContext(ctx, findCollectionStatement, collectionID, ownerID).Scan(
		&c.ID, &c.UserID, &c.Name, &description, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find collection")
	}
	c.Description = description.String
	return &c, nil
}

func (r *CollectionRepo) ListOwned(ctx context.Context, ownerID string) ([]models.Collection, error) {
	rows, err := r.db.QueryContext(ctx, listCollectionsStatement, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list collections")
	}
	defer rows.Close()

	out := []models.Collection{}
	for rows.Next() {
		var (
			c           models.Collection
			description sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &description, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan collection")
		}
		c.Description = description.String
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "list collections")
}

// DeleteOwned removes a collection; its entries become unorganized through the
// ON DELETE SET NULL foreign key.
func (r *CollectionRepo) DeleteOwned(ctx context.Context, ownerID, collectionID string) error {
	if !validID(collectionID) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, deleteCollectionStatement, collectionID, ownerID)
	if err != nil {
		return errors.Wrap(err, "delete collection")
	}
	return requireAffected(res)
}
