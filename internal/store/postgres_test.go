package store

import (
	"context"
	"database/sql/driver"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/pkg/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumns = []string{
	"id", "user_id", "title", "content", "mood", "mood_score", "mood_image_url",
	"collection_id", "name", "created_at", "updated_at",
}

func strPtr(s string) *string { return &s }

func newMock(t *testing.T) (*EntryRepo, *DraftRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEntryRepo(db, nil), NewDraftRepo(db, nil), mock
}

func testEntry(userID string) *models.Entry {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        "Morning pages",
		Content:      "<p>slept well</p>",
		Mood:         "HAPPY",
		MoodScore:    8,
		MoodImageURL: strPtr("http://img/1"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPublishInsertsEntryAndClearsDraftInOneTransaction(t *testing.T) {
	entries, _, mock := newMock(t)
	owner := uuid.NewString()
	entry := testEntry(owner)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entries").
		WithArgs(entry.ID, owner, entry.Title, entry.Content, "HAPPY", 8, "http://img/1", nil, entry.CreatedAt, entry.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM drafts WHERE user_id").
		WithArgs(owner).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, entries.Publish(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishRollsBackWhenDraftClearFails(t *testing.T) {
	entries, _, mock := newMock(t)
	entry := testEntry(uuid.NewString())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entries").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM drafts").WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err := entries.Publish(context.Background(), entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear draft")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOwnedScansCollection(t *testing.T) {
	entries, _, mock := newMock(t)
	owner := uuid.NewString()
	entryID := uuid.NewString()
	collectionID := uuid.NewString()
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE e.id = \$1 AND e.user_id = \$2`).
		WithArgs(entryID, owner).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(entryID, owner, "T", "C", "SAD", 3, nil, collectionID, "Work", now, now))

	got, err := entries.FindOwned(context.Background(), owner, entryID)
	require.NoError(t, err)
	assert.Equal(t, "SAD", got.Mood)
	assert.Equal(t, 3, got.MoodScore)
	assert.Nil(t, got.MoodImageURL)
	require.NotNil(t, got.Collection)
	assert.Equal(t, models.CollectionRef{ID: collectionID, Name: "Work"}, *got.Collection)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOwnedNotFound(t *testing.T) {
	entries, _, mock := newMock(t)
	owner := uuid.NewString()
	entryID := uuid.NewString()

	mock.ExpectQuery("FROM entries").
		WithArgs(entryID, owner).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	_, err := entries.FindOwned(context.Background(), owner, entryID)
	assert.ErrorIs(t, err, ErrNotFound)

	// malformed ids never reach the database
	_, err = entries.FindOwned(context.Background(), owner, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOwnedQueriesPerScope(t *testing.T) {
	entries, _, mock := newMock(t)
	owner := uuid.NewString()
	collectionID := uuid.NewString()
	ctx := context.Background()

	mock.ExpectQuery(`WHERE e.user_id = \$1 ORDER BY e.created_at DESC`).
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows(entryColumns))
	mock.ExpectQuery(`e.collection_id IS NULL ORDER BY e.created_at ASC`).
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows(entryColumns))
	mock.ExpectQuery(`e.collection_id = \$2 ORDER BY e.created_at DESC`).
		WithArgs(owner, collectionID).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	all, err := entries.ListOwned(ctx, owner, models.EntryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	_, err = entries.ListOwned(ctx, owner, models.EntryFilter{Scope: models.Unorganized, Ascending: true})
	require.NoError(t, err)

	_, err = entries.ListOwned(ctx, owner, models.EntryFilter{Scope: models.InCollection, CollectionID: collectionID})
	require.NoError(t, err)

	none, err := entries.ListOwned(ctx, owner, models.EntryFilter{Scope: models.InCollection, CollectionID: "bogus"})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAndDeleteReportNotFound(t *testing.T) {
	entries, _, mock := newMock(t)
	entry := testEntry(uuid.NewString())

	mock.ExpectExec("UPDATE entries").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM entries").
		WithArgs(entry.ID, entry.UserID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM entries").
		WithArgs(entry.ID, entry.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, entries.UpdateOwned(context.Background(), entry), ErrNotFound)
	assert.ErrorIs(t, entries.DeleteOwned(context.Background(), entry.UserID, entry.ID), ErrNotFound)
	assert.NoError(t, entries.DeleteOwned(context.Background(), entry.UserID, entry.ID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftUpsertAndGet(t *testing.T) {
	_, drafts, mock := newMock(t)
	owner := uuid.NewString()
	existingID := uuid.NewString()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery("ON CONFLICT \\(user_id\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), owner, "T", "C", "happy", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(existingID, created))
	mock.ExpectQuery("FROM drafts").
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "content", "mood", "created_at", "updated_at"}))

	d := &models.Draft{ID: uuid.NewString(), UserID: owner, Title: "T", Content: "C", Mood: "happy", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, drafts.Save(context.Background(), d))
	assert.Equal(t, existingID, d.ID)
	assert.Equal(t, created, d.CreatedAt)

	got, err := drafts.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

// sealedArg matches a value written through a Sealer.
type sealedArg struct{ plain string }

func (a sealedArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "enc:v1:") && !strings.Contains(s, a.plain)
}

func TestEntryContentIsSealedAtRest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sealer, err := utils.NewSealer(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)
	repo := NewEntryRepo(db, sealer)
	entry := testEntry(uuid.NewString())

	mock.ExpectExec("INSERT INTO entries").
		WithArgs(entry.ID, entry.UserID, entry.Title, sealedArg{plain: entry.Content}, "HAPPY", 8, "http://img/1", nil, entry.CreatedAt, entry.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), entry))

	sealed, err := sealer.Seal("<p>secret</p>")
	require.NoError(t, err)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM entries").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(entry.ID, entry.UserID, "T", sealed, "HAPPY", 8, "http://img/1", nil, nil, now, now))

	got, err := repo.FindOwned(context.Background(), entry.UserID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>secret</p>", got.Content)
	assert.Nil(t, got.Collection)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoFindAndCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	users := NewUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users").
		WithArgs("user_ext_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "name", "email", "image_url", "created_at", "updated_at"}))
	mock.ExpectExec("ON CONFLICT \\(external_id\\) DO NOTHING").
		WithArgs(sqlmock.AnyArg(), "user_ext_1", "Ada Lovelace", "ada@example.com", "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = users.FindByExternalID(context.Background(), "user_ext_1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, users.Create(context.Background(), &models.User{
		ID: uuid.NewString(), ExternalID: "user_ext_1", Name: "Ada Lovelace", Email: "ada@example.com", CreatedAt: now,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRepoDeleteOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	collections := NewCollectionRepo(db)
	owner := uuid.NewString()
	id := uuid.NewString()

	mock.ExpectExec("DELETE FROM collections").
		WithArgs(id, owner).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, collections.DeleteOwned(context.Background(), owner, id), ErrNotFound)
	assert.ErrorIs(t, collections.DeleteOwned(context.Background(), owner, "x"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
