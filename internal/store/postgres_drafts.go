package store

import (
	"context"
	"database/sql"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/pkg/utils"
	"github.com/pkg/errors"
)

const (
	getDraftStatement = `
	SELECT id, user_id, title, content, mood, created_at, updated_at
	FROM drafts
	WHERE user_id = $1
	`

	// The unique user_id constraint is what keeps drafts to one per user.
	upsertDraftStatement = `
	INSERT INTO drafts (id, user_id, title, content, mood, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	ON CONFLICT (user_id) DO UPDATE
	SET title = EXCLUDED.title, content = EXCLUDED.content, mood = EXCLUDED.mood, updated_at = EXCLUDED.updated_at
	RETURNING id, created_at
	`

	deleteDraftStatement = `DELETE FROM drafts WHERE user_id = $1`
)

// DraftRepo stores the per-user draft in PostgreSQL.
type DraftRepo struct {
	db     *sql.DB
	sealer *utils.Sealer
}

func NewDraftRepo(db *sql.DB, sealer *utils.Sealer) *DraftRepo {
	return &DraftRepo{db: db, sealer: sealer}
}

// Get returns ownerID's draft, or nil when there is none.
func (r *DraftRepo) Get(ctx context.Context, ownerID string) (*models.Draft, error) {
	var draft models.Draft
	err := r.db.QueryRowContext(ctx, getDraftStatement, ownerID).Scan(
		&draft.ID,
		&draft.UserID,
		&draft.Title,
		&draft.Content,
		&draft.Mood,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get draft")
	}
	if draft.Content, err = r.sealer.Open(draft.Content); err != nil {
		return nil, errors.Wrap(err, "open draft content")
	}
	return &draft, nil
}

// Save creates or overwrites the owner's draft. draft.ID and draft.CreatedAt
// are replaced with the stored values when a draft already existed.
func (r *DraftRepo) Save(ctx context.Context, draft *models.Draft) error {
	content, err := r.sealer.Seal(draft.Content)
	if err != nil {
		return errors.Wrap(err, "seal draft content")
	}
	err = r.db.QueryRowContext(ctx, upsertDraftStatement,
		draft.ID,
		draft.UserID,
		draft.Title,
		content,
		draft.Mood,
		draft.UpdatedAt,
	).Scan(&draft.ID, &draft.CreatedAt)
	return errors.Wrap(err, "upsert draft")
}

// Clear deletes the owner's draft. Deleting a missing draft is not an error.
func (r *DraftRepo) Clear(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, deleteDraftStatement, ownerID)
	return errors.Wrap(err, "delete draft")
}
