package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/AnshRaj112/reflect-backend/internal/metrics"
	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/internal/moods"
	"github.com/AnshRaj112/reflect-backend/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EntryStore is owner-scoped CRUD over entries. FindOwned, UpdateOwned and
// DeleteOwned return store.ErrNotFound for rows the owner does not have.
type EntryStore interface {
	Create(ctx context.Context, entry *models.Entry) error
	FindOwned(ctx context.Context, ownerID, entryID string) (*models.Entry, error)
	ListOwned(ctx context.Context, ownerID string, filter models.EntryFilter) ([]models.Entry, error)
	UpdateOwned(ctx context.Context, entry *models.Entry) error
	DeleteOwned(ctx context.Context, ownerID, entryID string) error
}

// EntryPublisher is implemented by entry stores that can insert an entry and
// clear its owner's draft in one transaction.
type EntryPublisher interface {
	Publish(ctx context.Context, entry *models.Entry) error
}

// DraftStore holds at most one draft per owner. Get returns nil without an
// error when there is none; Clear is idempotent.
type DraftStore interface {
	Get(ctx context.Context, ownerID string) (*models.Draft, error)
	Save(ctx context.Context, draft *models.Draft) error
	Clear(ctx context.Context, ownerID string) error
}

type CollectionStore interface {
	Create(ctx context.Context, c *models.Collection) error
	FindOwned(ctx context.Context, ownerID, collectionID string) (*models.Collection, error)
	ListOwned(ctx context.Context, ownerID string) ([]models.Collection, error)
	DeleteOwned(ctx context.Context, ownerID, collectionID string) error
}

// Admission decides whether an identity may spend cost tokens.
type Admission interface {
	Evaluate(ctx context.Context, identity string, cost int) (Decision, error)
}

// ImageEnricher returns an image URL for a query, or "" when none could be found.
type ImageEnricher interface {
	FetchImage(ctx context.Context, query string) string
}

// Invalidator evicts a cached surface of one owner.
type Invalidator interface {
	Invalidate(ctx context.Context, ownerID, path string) error
}

// Invalidators fans one invalidation out to several collaborators.
type Invalidators []Invalidator

func (is Invalidators) Invalidate(ctx context.Context, ownerID, path string) error {
	var first error
	for _, inv := range is {
		if err := inv.Invalidate(ctx, ownerID, path); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ViewStore caches rendered views per owner and surface. Variants of one
// surface are evicted together through Invalidator.
type ViewStore interface {
	Get(ctx context.Context, ownerID, path, variant string, dest interface{}) (bool, error)
	Set(ctx context.Context, ownerID, path, variant string, value interface{}) error
}

// ActivityRecorder receives lifecycle events. Record must not block.
type ActivityRecorder interface {
	Record(a models.Activity)
}

// ActivityFeed is implemented by recorders that can read events back.
type ActivityFeed interface {
	Recent(ctx context.Context, userID string, before *time.Time, limit int64) ([]models.Activity, bool, error)
}

// EntryInput is the caller-editable part of an entry.
type EntryInput struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Mood         string `json:"mood"`
	MoodQuery    string `json:"moodQuery,omitempty"`
	CollectionID string `json:"collectionId,omitempty"`
}

type DraftInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Mood    string `json:"mood"`
}

// EntryView is a listed entry joined with its catalog descriptor.
type EntryView struct {
	models.Entry
	MoodData moods.Descriptor `json:"moodData"`
}

// JournalDeps wires a JournalService. Admission, Images, Invalidator, Views
// and Activity are optional.
type JournalDeps struct {
	Users       UserStore
	Entries     EntryStore
	Drafts      DraftStore
	Collections CollectionStore
	Admission   Admission
	Images      ImageEnricher
	Invalidator Invalidator
	Views       ViewStore
	Activity    ActivityRecorder
}

// JournalService owns the entry and draft lifecycle for the calling user.
type JournalService struct {
	deps JournalDeps
	now  func() time.Time
}

func NewJournalService(deps JournalDeps) *JournalService {
	return &JournalService{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

const (
	publishCost = 1

	detailVariant = "view"

	// titles and collection names are VARCHAR(255) columns
	maxNameLength = 255
)

// Publish creates an entry from in and consumes the caller's draft.
func (s *JournalService) Publish(ctx context.Context, in EntryInput) (entry *models.Entry, err error) {
	defer s.observe("publish", &err)

	identity, ok := IdentityFrom(ctx)
	if !ok {
		return nil, errUnauthorized()
	}
	if s.deps.Admission != nil {
		decision, aerr := s.deps.Admission.Evaluate(ctx, identity.ExternalID, publishCost)
		if aerr != nil {
			return nil, errInternal(aerr, "check rate limit")
		}
		if !decision.Allowed {
			metrics.RecordAdmissionDenied()
			return nil, errRateLimited(decision)
		}
	}

	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	mood, err := validateEntry(in)
	if err != nil {
		return nil, err
	}
	collectionID, err := s.ownedCollection(ctx, user.ID, in.CollectionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry = &models.Entry{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		Mood:         mood.ID,
		MoodScore:    mood.Score,
		MoodImageURL: s.enrich(ctx, in.MoodQuery, mood),
		CollectionID: collectionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if publisher, ok := s.deps.Entries.(EntryPublisher); ok {
		if err := publisher.Publish(ctx, entry); err != nil {
			return nil, errInternal(err, "create journal entry")
		}
	} else {
		if err := s.deps.Entries.Create(ctx, entry); err != nil {
			return nil, errInternal(err, "create journal entry")
		}
		// the entry is already stored, so a failure here leaves a stale draft rather than a lost entry
		if err := s.deps.Drafts.Clear(ctx, user.ID); err != nil {
			return nil, errInternal(err, "clear draft")
		}
	}

	s.invalidate(ctx, user.ID, DashboardPath)
	s.record(entry, models.ActivityPublished)
	s.log(user.ID, entry.ID).WithField("mood", entry.Mood).Info("entry published")
	return s.reload(ctx, entry), nil
}

// List returns the caller's entries narrowed by filter, each joined with its mood descriptor.
func (s *JournalService) List(ctx context.Context, filter models.EntryFilter) (views []EntryView, err error) {
	defer s.observe("list", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if s.cached(ctx, user.ID, DashboardPath, filter.CacheVariant(), &views) {
		return views, nil
	}

	entries, err := s.deps.Entries.ListOwned(ctx, user.ID, filter)
	if err != nil {
		return nil, errInternal(err, "fetch journal entries")
	}

	views = make([]EntryView, 0, len(entries))
	for _, e := range entries {
		descriptor, _ := moods.Resolve(e.Mood)
		views = append(views, EntryView{Entry: e, MoodData: descriptor})
	}
	s.cache(ctx, user.ID, DashboardPath, filter.CacheVariant(), views)
	return views, nil
}

// Get returns one of the caller's entries.
func (s *JournalService) Get(ctx context.Context, entryID string) (entry *models.Entry, err error) {
	defer s.observe("get", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	var cached models.Entry
	if s.cached(ctx, user.ID, EntryPath(entryID), detailVariant, &cached) {
		return &cached, nil
	}

	entry, err = s.deps.Entries.FindOwned(ctx, user.ID, entryID)
	if err != nil {
		return nil, storeError(err, "Entry", "fetch journal entry")
	}
	s.cache(ctx, user.ID, EntryPath(entryID), detailVariant, entry)
	return entry, nil
}

// Update replaces the editable fields of an entry. The image is looked up
// again only when the mood changes; otherwise the stored image and score stay.
func (s *JournalService) Update(ctx context.Context, entryID string, in EntryInput) (entry *models.Entry, err error) {
	defer s.observe("update", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	mood, err := validateEntry(in)
	if err != nil {
		return nil, err
	}
	existing, err := s.deps.Entries.FindOwned(ctx, user.ID, entryID)
	if err != nil {
		return nil, storeError(err, "Entry", "update journal entry")
	}
	collectionID, err := s.ownedCollection(ctx, user.ID, in.CollectionID)
	if err != nil {
		return nil, err
	}

	entry = existing
	entry.Title = strings.TrimSpace(in.Title)
	entry.Content = in.Content
	entry.CollectionID = collectionID
	entry.Collection = nil
	entry.UpdatedAt = s.now()
	if existing.Mood != mood.ID {
		entry.Mood = mood.ID
		entry.MoodScore = mood.Score
		entry.MoodImageURL = s.enrich(ctx, in.MoodQuery, mood)
	}

	if err := s.deps.Entries.UpdateOwned(ctx, entry); err != nil {
		return nil, storeError(err, "Entry", "update journal entry")
	}

	s.invalidate(ctx, user.ID, DashboardPath, EntryPath(entry.ID))
	s.record(entry, models.ActivityUpdated)
	s.log(user.ID, entry.ID).Info("entry updated")
	return s.reload(ctx, entry), nil
}

// Delete removes one of the caller's entries and returns it.
func (s *JournalService) Delete(ctx context.Context, entryID string) (entry *models.Entry, err error) {
	defer s.observe("delete", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	entry, err = s.deps.Entries.FindOwned(ctx, user.ID, entryID)
	if err != nil {
		return nil, storeError(err, "Entry", "delete journal entry")
	}
	if err := s.deps.Entries.DeleteOwned(ctx, user.ID, entryID); err != nil {
		return nil, storeError(err, "Entry", "delete journal entry")
	}

	s.invalidate(ctx, user.ID, DashboardPath, EntryPath(entry.ID))
	s.record(entry, models.ActivityDeleted)
	s.log(user.ID, entry.ID).Info("entry deleted")
	return entry, nil
}

// GetDraft returns the caller's draft, or nil when there is none.
func (s *JournalService) GetDraft(ctx context.Context) (draft *models.Draft, err error) {
	defer s.observe("get_draft", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	draft, err = s.deps.Drafts.Get(ctx, user.ID)
	if err != nil {
		return nil, errInternal(err, "fetch draft")
	}
	return draft, nil
}

// SaveDraft creates or overwrites the caller's draft. Drafts are not validated.
func (s *JournalService) SaveDraft(ctx context.Context, in DraftInput) (draft *models.Draft, err error) {
	defer s.observe("save_draft", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	draft = &models.Draft{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Title:     in.Title,
		Content:   in.Content,
		Mood:      in.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Drafts.Save(ctx, draft); err != nil {
		return nil, errInternal(err, "save draft")
	}

	s.invalidate(ctx, user.ID, DashboardPath)
	return draft, nil
}

// CreateCollection adds a named collection for the caller.
func (s *JournalService) CreateCollection(ctx context.Context, name, description string) (c *models.Collection, err error) {
	defer s.observe("create_collection", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errValidation("Name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, errValidation("Name must be at most %d characters", maxNameLength)
	}

	c = &models.Collection{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now(),
	}
	if err := s.deps.Collections.Create(ctx, c); err != nil {
		return nil, errInternal(err, "create collection")
	}
	return c, nil
}

func (s *JournalService) ListCollections(ctx context.Context) (cs []models.Collection, err error) {
	defer s.observe("list_collections", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	cs, err = s.deps.Collections.ListOwned(ctx, user.ID)
	if err != nil {
		return nil, errInternal(err, "fetch collections")
	}
	return cs, nil
}

// DeleteCollection removes a collection; its entries become unorganized.
func (s *JournalService) DeleteCollection(ctx context.Context, collectionID string) (err error) {
	defer s.observe("delete_collection", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	// detail views of member entries embed the collection, so they go too
	paths := []string{DashboardPath}
	members, lerr := s.deps.Entries.ListOwned(ctx, user.ID, models.EntryFilter{Scope: models.InCollection, CollectionID: collectionID})
	if lerr != nil {
		s.log(user.ID, "").WithError(lerr).Warn("could not list collection entries for invalidation")
	}
	for _, e := range members {
		paths = append(paths, EntryPath(e.ID))
	}

	if err := s.deps.Collections.DeleteOwned(ctx, user.ID, collectionID); err != nil {
		return storeError(err, "Collection", "delete collection")
	}

	s.invalidate(ctx, user.ID, paths...)
	return nil
}

// RecentActivity pages through the caller's lifecycle events, newest first.
// Without an activity feed the result is empty.
func (s *JournalService) RecentActivity(ctx context.Context, before *time.Time, limit int64) (events []models.Activity, hasMore bool, err error) {
	defer s.observe("activity", &err)

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, false, err
	}
	feed, ok := s.deps.Activity.(ActivityFeed)
	if !ok {
		return []models.Activity{}, false, nil
	}
	events, hasMore, err = feed.Recent(ctx, user.ID, before, limit)
	if err != nil {
		return nil, false, errInternal(err, "fetch activity")
	}
	return events, hasMore, nil
}

// CurrentUser runs the shared preamble: a session must exist and map to a provisioned user.
func (s *JournalService) CurrentUser(ctx context.Context) (*models.User, error) {
	identity, ok := IdentityFrom(ctx)
	if !ok {
		return nil, errUnauthorized()
	}
	return s.resolveUser(ctx, identity)
}

func (s *JournalService) resolveUser(ctx context.Context, identity Identity) (*models.User, error) {
	user, err := s.deps.Users.FindByExternalID(ctx, identity.ExternalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errUserNotFound()
		}
		return nil, errInternal(err, "load user")
	}
	return user, nil
}

func validateEntry(in EntryInput) (moods.Descriptor, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return moods.Descriptor{}, errValidation("Title is required")
	}
	if utf8.RuneCountInString(title) > maxNameLength {
		return moods.Descriptor{}, errValidation("Title must be at most %d characters", maxNameLength)
	}
	if strings.TrimSpace(in.Content) == "" {
		return moods.Descriptor{}, errValidation("Content is required")
	}
	if strings.TrimSpace(in.Mood) == "" {
		return moods.Descriptor{}, errValidation("Mood is required")
	}
	mood, ok := moods.Resolve(in.Mood)
	if !ok {
		return moods.Descriptor{}, errValidation("Invalid mood")
	}
	return mood, nil
}

// ownedCollection returns nil for an empty id, and NotFound unless the
// collection belongs to ownerID.
func (s *JournalService) ownedCollection(ctx context.Context, ownerID, collectionID string) (*string, error) {
	collectionID = strings.TrimSpace(collectionID)
	if collectionID == "" {
		return nil, nil
	}
	c, err := s.deps.Collections.FindOwned(ctx, ownerID, collectionID)
	if err != nil {
		return nil, storeError(err, "Collection", "load collection")
	}
	return &c.ID, nil
}

func (s *JournalService) enrich(ctx context.Context, override string, mood moods.Descriptor) *string {
	if s.deps.Images == nil {
		return nil
	}
	query := strings.TrimSpace(override)
	if query == "" {
		query = mood.ImageQuery
	}
	url := s.deps.Images.FetchImage(ctx, query)
	metrics.RecordEnrichment(url != "")
	if url == "" {
		return nil
	}
	return &url
}

// reload re-reads entry so the result carries its collection reference.
func (s *JournalService) reload(ctx context.Context, entry *models.Entry) *models.Entry {
	fresh, err := s.deps.Entries.FindOwned(ctx, entry.UserID, entry.ID)
	if err != nil {
		s.log(entry.UserID, entry.ID).WithError(err).Warn("reload after write failed")
		return entry
	}
	return fresh
}

func (s *JournalService) cached(ctx context.Context, ownerID, path, variant string, dest interface{}) bool {
	if s.deps.Views == nil {
		return false
	}
	hit, err := s.deps.Views.Get(ctx, ownerID, path, variant, dest)
	if err != nil {
		s.log(ownerID, "").WithFields(logrus.Fields{"path": path, "error": err}).Warn("view cache read failed")
		return false
	}
	return hit
}

func (s *JournalService) cache(ctx context.Context, ownerID, path, variant string, value interface{}) {
	if s.deps.Views == nil {
		return
	}
	if err := s.deps.Views.Set(ctx, ownerID, path, variant, value); err != nil {
		s.log(ownerID, "").WithFields(logrus.Fields{"path": path, "error": err}).Warn("view cache write failed")
	}
}

func (s *JournalService) invalidate(ctx context.Context, ownerID string, paths ...string) {
	if s.deps.Invalidator == nil {
		return
	}
	for _, path := range paths {
		if err := s.deps.Invalidator.Invalidate(ctx, ownerID, path); err != nil {
			s.log(ownerID, "").WithFields(logrus.Fields{"path": path, "error": err}).Warn("cache invalidation failed")
		}
	}
}

func (s *JournalService) record(entry *models.Entry, kind models.ActivityType) {
	if s.deps.Activity == nil {
		return
	}
	s.deps.Activity.Record(models.Activity{
		UserID:    entry.UserID,
		EntryID:   entry.ID,
		Type:      kind,
		Title:     entry.Title,
		Mood:      entry.Mood,
		MoodScore: entry.MoodScore,
		Timestamp: s.now(),
	})
}

func (s *JournalService) observe(op string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = KindOf(*err).String()
		if KindOf(*err) == KindInternal {
			logger.Log.WithFields(logrus.Fields{"op": op, "error": *err}).Error("journal operation failed")
		}
	}
	metrics.RecordLifecycle(op, outcome)
}

func (s *JournalService) log(userID, entryID string) *logrus.Entry {
	fields := logrus.Fields{"user_id": userID}
	if entryID != "" {
		fields["entry_id"] = entryID
	}
	return logger.Log.WithFields(fields)
}

func storeError(err error, what, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound(what)
	}
	return errInternal(err, op)
}
