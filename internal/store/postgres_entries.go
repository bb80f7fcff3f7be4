package store

import (
	"context"
	"database/sql"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/pkg/utils"
	"github.com/pkg/errors"
)

const (
	insertEntryStatement = `
	INSERT INTO entries (id, user_id, title, content, mood, mood_score, mood_image_url, collection_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	selectEntryColumns = `
	SELECT e.id, e.user_id, e.title, e.content, e.mood, e.mood_score, e.mood_image_url,
	       e.collection_id, c.name, e.created_at, e.updated_at
	FROM entries e
	LEFT JOIN collections c ON c.id = e.collection_id
	`

	findEntryStatement = selectEntryColumns + `WHERE e.id = $1 AND e.user_id = $2`

	listEntriesStatement            = selectEntryColumns + `WHERE e.user_id = $1 ORDER BY e.created_at `
	listUnorganizedEntriesStatement = selectEntryColumns + `WHERE e.user_id = $1 AND e.collection_id IS NULL ORDER BY e.created_at `
	listCollectionEntriesStatement  = selectEntryColumns + `WHERE e.user_id = $1 AND e.collection_id = $2 ORDER BY e.created_at `

	updateEntryStatement = `
	UPDATE entries
	SET title = $1, content = $2, mood = $3, mood_score = $4, mood_image_url = $5, collection_id = $6, updated_at = $7
	WHERE id = $8 AND user_id = $9
	`

	deleteEntryStatement = `DELETE FROM entries WHERE id = $1 AND user_id = $2`
)

// EntryRepo stores entries in PostgreSQL. Content is sealed when a Sealer is configured.
type EntryRepo struct {
	db     *sql.DB
	sealer *utils.Sealer
}

func NewEntryRepo(db *sql.DB, sealer *utils.Sealer) *EntryRepo {
	return &EntryRepo{db: db, sealer: sealer}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *EntryRepo) insert(ctx context.Context, ex execer, entry *models.Entry) error {
	content, err := r.sealer.Seal(entry.Content)
	if err != nil {
		return errors.Wrap(err, "seal entry content")
	}
	_, err = ex.ExecContext(ctx, insertEntryStatement,
		entry.ID,
		entry.UserID,
		entry.Title,
		content,
		entry.Mood,
		entry.MoodScore,
		nullString(entry.MoodImageURL),
		nullString(entry.CollectionID),
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	return errors.Wrap(err, "insert entry")
}

// Create inserts a new entry row.
func (r *EntryRepo) Create(ctx context.Context, entry *models.Entry) error {
	return r.insert(ctx, r.db, entry)
}

// Publish inserts entry and removes the owner's draft in one transaction.
func (r *EntryRepo) Publish(ctx context.Context, entry *models.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin publish")
	}
	defer tx.Rollback()

	if err := r.insert(ctx, tx, entry); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deleteDraftStatement, entry.UserID); err != nil {
		return errors.Wrap(err, "clear draft")
	}

	return errors.Wrap(tx.Commit(), "commit publish")
}

// FindOwned returns the entry with entryID if it belongs to ownerID.
func (r *EntryRepo) FindOwned(ctx context.Context, ownerID, entryID string) (*models.Entry, error) {
	if !validID(entryID) {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, findEntryStatement, entryID, ownerID)
	entry, err := r.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find entry")
	}
	return entry, nil
}

// ListOwned returns ownerID's entries narrowed by filter, ordered by creation time.
func (r *EntryRepo) ListOwned(ctx context.Context, ownerID string, filter models.EntryFilter) ([]models.Entry, error) {
	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}

	var (
		rows *sql.Rows
		err  error
	)
	switch filter.Scope {
	case models.Unorganized:
		rows, err = r.db.QueryContext(ctx, listUnorganizedEntriesStatement+order, ownerID)
	case models.InCollection:
		if !validID(filter.CollectionID) {
			return []models.Entry{}, nil
		}
		rows, err = r.db.QueryContext(ctx, listCollectionEntriesStatement+order, ownerID, filter.CollectionID)
	default:
		rows, err = r.db.QueryContext(ctx, listEntriesStatement+order, ownerID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list entries")
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan entry")
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list entries")
	}
	return entries, nil
}

// UpdateOwned overwrites the mutable fields of an existing entry.
func (r *EntryRepo) UpdateOwned(ctx context.Context, entry *models.Entry) error {
	if !validID(entry.ID) {
		return ErrNotFound
	}
	content, err := r.sealer.Seal(entry.Content)
	if err != nil {
		return errors.Wrap(err, "seal entry content")
	}
	res, err := r.db.ExecContext(ctx, updateEntryStatement,
		entry.Title,
		content,
		entry.Mood,
		entry.MoodScore,
		nullString(entry.MoodImageURL),
		nullString(entry.CollectionID),
		entry.UpdatedAt,
		entry.ID,
		entry.UserID,
	)
	if err != nil {
		return errors.Wrap(err, "update entry")
	}
	return requireAffected(res)
}

// DeleteOwned removes an entry owned by ownerID.
func (r *EntryRepo) DeleteOwned(ctx context.Context, ownerID, entryID string) error {
	if !validID(entryID) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, deleteEntryStatement, entryID, ownerID)
	if err != nil {
		return errors.Wrap(err, "delete entry")
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *EntryRepo) scan(row rowScanner) (*models.Entry, error) {
	var (
		entry          models.Entry
		imageURL       sql.NullString
		collectionID   sql.NullString
		collectionName sql.NullString
	)
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Title,
		&entry.Content,
		&entry.Mood,
		&entry.MoodScore,
		&imageURL,
		&collectionID,
		&collectionName,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entry.Content, err = r.sealer.Open(entry.Content); err != nil {
		return nil, errors.Wrap(err, "open entry content")
	}
	entry.MoodImageURL = stringPtr(imageURL)
	entry.CollectionID = stringPtr(collectionID)
	if entry.CollectionID != nil {
		entry.Collection = &models.CollectionRef{ID: *entry.CollectionID, Name: collectionName.String}
	}
	return &entry, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
