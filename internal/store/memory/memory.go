// Package memory is an in-process implementation of the store repositories.
// It backs the service and handler tests and STORE_BACKEND=memory local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/internal/store"
)

// Store holds every table behind one mutex.
type Store struct {
	mu          sync.RWMutex
	users       map[string]models.User // keyed by external id
	collections map[string]models.Collection
	entries     map[string]models.Entry
	drafts      map[string]models.Draft // keyed by owner id
}

func New() *Store {
	return &Store{
		users:       make(map[string]models.User),
		collections: make(map[string]models.Collection),
		entries:     make(map[string]models.Entry),
		drafts:      make(map[string]models.Draft),
	}
}

// Users, Collections, Entries and Drafts expose the repository views of the store.
func (s *Store) Users() *UserRepo             { return &UserRepo{s} }
func (s *Store) Collections() *CollectionRepo { return &CollectionRepo{s} }
func (s *Store) Entries() *EntryRepo          { return &EntryRepo{s} }
func (s *Store) Drafts() *DraftRepo           { return &DraftRepo{s} }

type UserRepo struct{ s *Store }

func (r *UserRepo) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[externalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.users[user.ExternalID]; !exists {
		r.s.users[user.ExternalID] = *user
	}
	return nil
}

type CollectionRepo struct{ s *Store }

func (r *CollectionRepo) Create(_ context.Context, c *models.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.collections[c.ID] = *c
	return nil
}

func (r *CollectionRepo) FindOwned(_ context.Context, ownerID, collectionID string) (*models.Collection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.collections[collectionID]
	if !ok || c.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r *CollectionRepo) ListOwned(_ context.Context, ownerID string) ([]models.Collection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Collection{}
	for _, c := range r.s.collections {
		if c.UserID == ownerID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *CollectionRepo) DeleteOwned(_ context.Context, ownerID, collectionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.collections[collectionID]
	if !ok || c.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(r.s.collections, collectionID)
	for id, e := range r.s.entries {
		if e.CollectionID != nil && *e.CollectionID == collectionID {
			e.CollectionID = nil
			r.s.entries[id] = e
		}
	}
	return nil
}

type EntryRepo struct{ s *Store }

func (r *EntryRepo) Create(_ context.Context, entry *models.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entries[entry.ID] = copyEntry(*entry)
	return nil
}

func (r *EntryRepo) FindOwned(_ context.Context, ownerID, entryID string) (*models.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[entryID]
	if !ok || e.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	out := r.withCollection(e)
	return &out, nil
}

func (r *EntryRepo) ListOwned(_ context.Context, ownerID string, filter models.EntryFilter) ([]models.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Entry{}
	for _, e := range r.s.entries {
		if e.UserID != ownerID {
			continue
		}
		switch filter.Scope {
		case models.Unorganized:
			if e.CollectionID != nil {
				continue
			}
		case models.InCollection:
			if e.CollectionID == nil || *e.CollectionID != filter.CollectionID {
				continue
			}
		}
		out = append(out, r.withCollection(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *EntryRepo) UpdateOwned(_ context.Context, entry *models.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.entries[entry.ID]
	if !ok || existing.UserID != entry.UserID {
		return store.ErrNotFound
	}
	updated := copyEntry(*entry)
	updated.CreatedAt = existing.CreatedAt
	r.s.entries[entry.ID] = updated
	return nil
}

func (r *EntryRepo) DeleteOwned(_ context.Context, ownerID, entryID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[entryID]
	if !ok || e.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(r.s.entries, entryID)
	return nil
}

// withCollection attaches the collection reference; callers hold the lock.
func (r *EntryRepo) withCollection(e models.Entry) models.Entry {
	e = copyEntry(e)
	if e.CollectionID != nil {
		if c, ok := r.s.collections[*e.CollectionID]; ok {
			e.Collection = &models.CollectionRef{ID: c.ID, Name: c.Name}
		}
	}
	return e
}

func copyEntry(e models.Entry) models.Entry {
	if e.MoodImageURL != nil {
		v := *e.MoodImageURL
		e.MoodImageURL = &v
	}
	if e.CollectionID != nil {
		v := *e.CollectionID
		e.CollectionID = &v
	}
	e.Collection = nil
	return e
}

type DraftRepo struct{ s *Store }

func (r *DraftRepo) Get(_ context.Context, ownerID string) (*models.Draft, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.drafts[ownerID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *DraftRepo) Save(_ context.Context, draft *models.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.drafts[draft.UserID]; ok {
		draft.ID = existing.ID
		draft.CreatedAt = existing.CreatedAt
	}
	r.s.drafts[draft.UserID] = *draft
	return nil
}

func (r *DraftRepo) Clear(_ context.Context, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.drafts, ownerID)
	return nil
}

// DraftCount reports how many drafts ownerID has; the schema allows at most one.
func (s *Store) DraftCount(ownerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.drafts[ownerID]; ok {
		return 1
	}
	return 0
}

// SetEntryScore overwrites a stored score, standing in for rows written
// under an older catalog.
func (s *Store) SetEntryScore(entryID string, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[entryID]; ok {
		e.MoodScore = score
		s.entries[entryID] = e
	}
}
