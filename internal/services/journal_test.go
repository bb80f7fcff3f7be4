package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/internal/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	mu    sync.Mutex
	url   string
	calls []string
}

func (f *fakeImages) FetchImage(_ context.Context, query string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	return f.url
}

type fakeAdmission struct {
	deny  bool
	calls int
}

func (f *fakeAdmission) Evaluate(context.Context, string, int) (Decision, error) {
	f.calls++
	if f.deny {
		return Decision{Allowed: false, Remaining: 0, ResetSeconds: 90}, nil
	}
	return Decision{Allowed: true, Remaining: 9}, nil
}

type recordingInvalidator struct {
	calls []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, ownerID, path string) error {
	r.calls = append(r.calls, ownerID+" "+path)
	return nil
}

type recordingActivity struct {
	events []models.Activity
}

func (r *recordingActivity) Record(a models.Activity) { r.events = append(r.events, a) }

type journalFixture struct {
	svc         *JournalService
	store       *memory.Store
	images      *fakeImages
	admission   *fakeAdmission
	invalidator *recordingInvalidator
	activity    *recordingActivity
}

func newJournalFixture(t *testing.T) *journalFixture {
	t.Helper()
	st := memory.New()
	f := &journalFixture{
		store:       st,
		images:      &fakeImages{url: "http://img/1"},
		admission:   &fakeAdmission{},
		invalidator: &recordingInvalidator{},
		activity:    &recordingActivity{},
	}
	f.svc = NewJournalService(JournalDeps{
		Users:       st.Users(),
		Entries:     st.Entries(),
		Drafts:      st.Drafts(),
		Collections: st.Collections(),
		Admission:   f.admission,
		Images:      f.images,
		Invalidator: f.invalidator,
		Activity:    f.activity,
	})
	// strictly increasing clock so list order is deterministic
	clock := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

// login provisions a user and returns a context carrying their identity.
func (f *journalFixture) login(t *testing.T, externalID string) (context.Context, *models.User) {
	t.Helper()
	user := &models.User{ID: uuid.NewString(), ExternalID: externalID, Name: externalID}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return WithIdentity(context.Background(), Identity{ExternalID: externalID}), user
}

func (f *journalFixture) publish(t *testing.T, ctx context.Context, in EntryInput) *models.Entry {
	t.Helper()
	entry, err := f.svc.Publish(ctx, in)
	require.NoError(t, err)
	return entry
}

func happy(title string) EntryInput {
	return EntryInput{Title: title, Content: "<p>" + title + "</p>", Mood: "happy"}
}

func TestDraftThenPublishClearsDraft(t *testing.T) {
	f := newJournalFixture(t)
	ctx, user := f.login(t, "user_a")

	draft, err := f.svc.SaveDraft(ctx, DraftInput{Title: "T", Content: "C", Mood: "happy"})
	require.NoError(t, err)
	assert.Equal(t, "happy", draft.Mood)

	got, err := f.svc.GetDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "C", got.Content)
	assert.Equal(t, "happy", got.Mood)

	entry := f.publish(t, ctx, EntryInput{Title: "Fresh", Content: "Unrelated to the draft", Mood: "happy"})
	assert.Equal(t, "HAPPY", entry.Mood)
	assert.Equal(t, 8, entry.MoodScore)
	assert.Equal(t, user.ID, entry.UserID)

	got, err = f.svc.GetDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, f.store.DraftCount(user.ID))
}

func TestSaveDraftKeepsOneDraftPerOwner(t *testing.T) {
	f := newJournalFixture(t)
	ctx, user := f.login(t, "user_a")

	first, err := f.svc.SaveDraft(ctx, DraftInput{Title: "one"})
	require.NoError(t, err)
	for _, title := range []string{"two", "three"} {
		_, err := f.svc.SaveDraft(ctx, DraftInput{Title: title, Content: title + " body", Mood: ""})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.store.DraftCount(user.ID))
	got, err := f.svc.GetDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "three", got.Title)
	assert.Equal(t, "three body", got.Content)
	assert.Contains(t, f.invalidator.calls, user.ID+" "+DashboardPath)
}

func TestEntriesAreInvisibleToOtherUsers(t *testing.T) {
	f := newJournalFixture(t)
	alice, _ := f.login(t, "alice")
	bob, _ := f.login(t, "bob")
	entry := f.publish(t, alice, happy("mine"))

	_, err := f.svc.Get(bob, entry.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
	_, err = f.svc.Update(bob, entry.ID, happy("stolen"))
	assert.Equal(t, KindNotFound, KindOf(err))
	_, err = f.svc.Delete(bob, entry.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.svc.Get(bob, uuid.NewString())
	assert.Equal(t, KindNotFound, KindOf(err))

	still, err := f.svc.Get(alice, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", still.Title)
}

func TestStoredMoodScoreIsNotRecomputed(t *testing.T) {
	f := newJournalFixture(t)
	ctx, _ := f.login(t, "user_a")
	entry := f.publish(t, ctx, happy("snapshot"))

	f.store.SetEntryScore(entry.ID, 3)

	got, err := f.svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MoodScore)

	views, err := f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 3, views[0].MoodScore)
	assert.Equal(t, 8, views[0].MoodData.Score)
	assert.Equal(t, "Happy", views[0].MoodData.Label)
}

func TestUpdateKeepsImageWhenMoodUnchanged(t *testing.T) {
	f := newJournalFixture(t)
	ctx, user := f.login(t, "user_a")
	entry := f.publish(t, ctx, happy("original"))
	require.NotNil(t, entry.MoodImageURL)
	require.Equal(t, "http://img/1", *entry.MoodImageURL)

	f.images.url = "http://img/2"
	updated, err := f.svc.Update(ctx, entry.ID, EntryInput{Title: "edited", Content: "new body", Mood: "HAPPY"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Title)
	require.NotNil(t, updated.MoodImageURL)
	assert.Equal(t, "http://img/1", *updated.MoodImageURL)
	assert.Len(t, f.images.calls, 1, "no lookup for an unchanged mood")
	assert.Equal(t, entry.CreatedAt, updated.CreatedAt)

	assert.Contains(t, f.invalidator.calls, user.ID+" "+DashboardPath)
	assert.Contains(t, f.invalidator.calls, user.ID+" /journal/"+entry.ID)

	changed, err := f.svc.Update(ctx, entry.ID, EntryInput{Title: "edited", Content: "new body", Mood: "sad"})
	require.NoError(t, err)
	assert.Equal(t, "SAD", changed.Mood)
	assert.Equal(t, 3, changed.MoodScore)
	require.NotNil(t, changed.MoodImageURL)
	assert.Equal(t, "http://img/2", *changed.MoodImageURL)
	assert.Equal(t, []string{"happy joy", "sad rain"}, f.images.calls)
}

func TestListFiltersPartitionByCollection(t *testing.T) {
	f := newJournalFixture(t)
	ctx, _ := f.login(t, "user_a")

	work, err := f.svc.CreateCollection(ctx, "Work", "")
	require.NoError(t, err)
	home, err := f.svc.CreateCollection(ctx, "Home", "weekends")
	require.NoError(t, err)

	f.publish(t, ctx, happy("loose 1"))
	inWork := f.publish(t, ctx, EntryInput{Title: "standup", Content: "c", Mood: "tired", CollectionID: work.ID})
	f.publish(t, ctx, EntryInput{Title: "garden", Content: "c", Mood: "peaceful", CollectionID: home.ID})
	f.publish(t, ctx, happy("loose 2"))

	require.NotNil(t, inWork.Collection)
	assert.Equal(t, models.CollectionRef{ID: work.ID, Name: "Work"}, *inWork.Collection)

	all, err := f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "loose 2", all[0].Title, "newest first by default")

	asc, err := f.svc.List(ctx, models.EntryFilter{Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, "loose 1", asc[0].Title)

	unorganized, err := f.svc.List(ctx, models.ParseEntryFilter("unorganized", ""))
	require.NoError(t, err)
	workOnly, err := f.svc.List(ctx, models.ParseEntryFilter(work.ID, ""))
	require.NoError(t, err)
	homeOnly, err := f.svc.List(ctx, models.ParseEntryFilter(home.ID, ""))
	require.NoError(t, err)

	seen := map[string]int{}
	for _, part := range [][]EntryView{unorganized, workOnly, homeOnly} {
		for _, v := range part {
			seen[v.ID]++
		}
	}
	assert.Len(t, seen, len(all))
	for _, v := range all {
		assert.Equal(t, 1, seen[v.ID], v.Title)
	}
	for _, v := range unorganized {
		assert.Nil(t, v.CollectionID)
	}
	assert.Len(t, unorganized, 2)
	assert.Len(t, workOnly, 1)
}

func TestPublishDeniedByAdmissionLeavesNoTrace(t *testing.T) {
	f := newJournalFixture(t)
	ctx, user := f.login(t, "user_a")
	_, err := f.svc.SaveDraft(ctx, DraftInput{Title: "keep me"})
	require.NoError(t, err)
	f.invalidator.calls = nil

	f.admission.deny = true
	_, err = f.svc.Publish(ctx, happy("blocked"))
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))

	var svcErr *Error
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 90*time.Second, svcErr.RetryAfter)
	assert.Equal(t, 0, svcErr.Remaining)

	views, err := f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.Equal(t, 1, f.store.DraftCount(user.ID))
	assert.Empty(t, f.images.calls)
	assert.Empty(t, f.invalidator.calls)
}

func TestDeleteTwice(t *testing.T) {
	f := newJournalFixture(t)
	ctx, user := f.login(t, "user_a")
	entry := f.publish(t, ctx, happy("short lived"))

	deleted, err := f.svc.Delete(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, deleted.ID)
	assert.Equal(t, "short lived", deleted.Title)
	assert.Contains(t, f.invalidator.calls, user.ID+" "+DashboardPath)

	_, err = f.svc.Delete(ctx, entry.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPreambleErrors(t *testing.T) {
	f := newJournalFixture(t)

	_, err := f.svc.Publish(context.Background(), happy("x"))
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = f.svc.List(context.Background(), models.EntryFilter{})
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = f.svc.GetDraft(context.Background())
	assert.Equal(t, KindUnauthorized, KindOf(err))

	ghost := WithIdentity(context.Background(), Identity{ExternalID: "never_provisioned"})
	_, err = f.svc.Get(ghost, uuid.NewString())
	assert.Equal(t, KindUserNotFound, KindOf(err))
	_, err = f.svc.Publish(ghost, happy("x"))
	assert.Equal(t, KindUserNotFound, KindOf(err))
}

func TestPublishValidation(t *testing.T) {
	f := newJournalFixture(t)
	ctx, _ := f.login(t, "user_a")

	cases := map[string]EntryInput{
		"unknown mood":  {Title: "t", Content: "c", Mood: "ELATED"},
		"missing mood":  {Title: "t", Content: "c"},
		"missing title": {Title: "  ", Content: "c", Mood: "happy"},
		"empty content": {Title: "t", Mood: "happy"},
		"long title":    {Title: strings.Repeat("é", 256), Content: "c", Mood: "happy"},
	}
	for name, in := range cases {
		_, err := f.svc.Publish(ctx, in)
		assert.Equal(t, KindValidation, KindOf(err), name)
	}

	views, err := f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.Empty(t, f.images.calls)
}

func TestCollectionMustBelongToCaller(t *testing.T) {
	f := newJournalFixture(t)
	alice, _ := f.login(t, "alice")
	bob, _ := f.login(t, "bob")

	bobs, err := f.svc.CreateCollection(bob, "Bob's", "")
	require.NoError(t, err)

	_, err = f.svc.Publish(alice, EntryInput{Title: "t", Content: "c", Mood: "happy", CollectionID: bobs.ID})
	assert.Equal(t, KindNotFound, KindOf(err))

	entry := f.publish(t, alice, happy("mine"))
	_, err = f.svc.Update(alice, entry.ID, EntryInput{Title: "t", Content: "c", Mood: "happy", CollectionID: bobs.ID})
	assert.Equal(t, KindNotFound, KindOf(err))

	views, err := f.svc.List(alice, models.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, views, 1)
	assert.Nil(t, views[0].CollectionID)
}

func TestDeleteCollectionUnorganizesEntries(t *testing.T) {
	f := newJournalFixture(t)
	ctx, _ := f.login(t, "user_a")
	c, err := f.svc.CreateCollection(ctx, "Trip", "")
	require.NoError(t, err)
	entry := f.publish(t, ctx, EntryInput{Title: "t", Content: "c", Mood: "excited", CollectionID: c.ID})

	require.NoError(t, f.svc.DeleteCollection(ctx, c.ID))
	assert.Equal(t, KindNotFound, KindOf(f.svc.DeleteCollection(ctx, c.ID)))

	got, err := f.svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CollectionID)
	assert.Nil(t, got.Collection)

	_, err = f.svc.CreateCollection(ctx, "   ", "")
	assert.Equal(t, KindValidation, KindOf(err))
	_, err = f.svc.CreateCollection(ctx, strings.Repeat("x", 256), "")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestTitleAtColumnLimitIsAccepted(t *testing.T) {
	f := newJournalFixture(t)
	ctx, _ := f.login(t, "user_a")

	entry := f.publish(t, ctx, EntryInput{Title: strings.Repeat("é", 255), Content: "c", Mood: "happy"})
	assert.Equal(t, 255, utf8.RuneCountInString(entry.Title))

	_, err := f.svc.Update(ctx, entry.ID, EntryInput{Title: strings.Repeat("a", 256), Content: "c", Mood: "happy"})
	assert.Equal(t, KindValidation, KindOf(err))

	c, err := f.svc.CreateCollection(ctx, strings.Repeat("n", 255), "")
	require.NoError(t, err)
	assert.Len(t, c.Name, 255)
}

func TestEnrichmentDegradesAndHonoursOverride(t *testing.T) {
	f := newJournalFixture(t)
	ctx, _ := f.login(t, "user_a")

	f.images.url = ""
	entry := f.publish(t, ctx, EntryInput{Title: "t", Content: "c", Mood: "anxious", MoodQuery: "stormy sea"})
	assert.Nil(t, entry.MoodImageURL)
	assert.Equal(t, []string{"stormy sea"}, f.images.calls)
}

func TestPublishRecordsActivity(t *testing.T) {
	f := newJournalFixture(t)
	ctx, user := f.login(t, "user_a")
	entry := f.publish(t, ctx, happy("logged"))
	_, err := f.svc.Delete(ctx, entry.ID)
	require.NoError(t, err)

	require.Len(t, f.activity.events, 2)
	assert.Equal(t, models.ActivityPublished, f.activity.events[0].Type)
	assert.Equal(t, models.ActivityDeleted, f.activity.events[1].Type)
	assert.Equal(t, user.ID, f.activity.events[0].UserID)
	assert.Equal(t, "HAPPY", f.activity.events[0].Mood)
}

type failingClear struct {
	DraftStore
}

func (failingClear) Clear(context.Context, string) error { return errors.New("connection reset") }

func TestPublishCreatesBeforeClearingDraft(t *testing.T) {
	f := newJournalFixture(t)
	f.svc.deps.Drafts = failingClear{f.store.Drafts()}
	ctx, user := f.login(t, "user_a")
	_, err := f.svc.SaveDraft(ctx, DraftInput{Title: "draft"})
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, happy("kept"))
	assert.Equal(t, KindInternal, KindOf(err))

	// the entry survives with a stale draft rather than the other way round
	views, err := f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, views, 1)
	assert.Equal(t, 1, f.store.DraftCount(user.ID))
}

// txEntries stands in for a store that publishes in one transaction.
type txEntries struct {
	*memory.EntryRepo
	drafts    *memory.DraftRepo
	published int
}

func (s *txEntries) Publish(ctx context.Context, entry *models.Entry) error {
	s.published++
	if err := s.Create(ctx, entry); err != nil {
		return err
	}
	return s.drafts.Clear(ctx, entry.UserID)
}

type countingDrafts struct {
	DraftStore
	clears int
}

func (c *countingDrafts) Clear(ctx context.Context, ownerID string) error {
	c.clears++
	return c.DraftStore.Clear(ctx, ownerID)
}

func TestPublishUsesTransactionalStore(t *testing.T) {
	f := newJournalFixture(t)
	tx := &txEntries{EntryRepo: f.store.Entries(), drafts: f.store.Drafts()}
	drafts := &countingDrafts{DraftStore: f.store.Drafts()}
	f.svc.deps.Entries = tx
	f.svc.deps.Drafts = drafts
	ctx, user := f.login(t, "user_a")

	_, err := f.svc.SaveDraft(ctx, DraftInput{Title: "draft"})
	require.NoError(t, err)
	f.publish(t, ctx, happy("atomic"))

	assert.Equal(t, 1, tx.published)
	assert.Equal(t, 0, drafts.clears)
	assert.Equal(t, 0, f.store.DraftCount(user.ID))
}

func TestReadsAreCachedUntilInvalidated(t *testing.T) {
	f := newJournalFixture(t)
	_, client := newTestRedis(t)
	cache := NewViewCache(client, time.Minute)
	f.svc.deps.Views = cache
	f.svc.deps.Invalidator = Invalidators{cache, f.invalidator}
	ctx, _ := f.login(t, "user_a")
	entry := f.publish(t, ctx, happy("cached"))

	views, err := f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 8, views[0].MoodScore)

	f.store.SetEntryScore(entry.ID, 1)
	views, err = f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 8, views[0].MoodScore, "served from cache")
	assert.Equal(t, "Happy", views[0].MoodData.Label)

	got, err := f.svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MoodScore)
	f.store.SetEntryScore(entry.ID, 2)
	got, err = f.svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MoodScore, "served from cache")

	_, err = f.svc.Update(ctx, entry.ID, EntryInput{Title: "cached", Content: "c", Mood: "happy"})
	require.NoError(t, err)

	views, err = f.svc.List(ctx, models.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, views[0].MoodScore)
	got, err = f.svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MoodScore)
}

func TestDeleteCollectionEvictsMemberDetailViews(t *testing.T) {
	f := newJournalFixture(t)
	_, client := newTestRedis(t)
	cache := NewViewCache(client, time.Minute)
	f.svc.deps.Views = cache
	f.svc.deps.Invalidator = Invalidators{cache, f.invalidator}
	ctx, user := f.login(t, "user_a")

	c, err := f.svc.CreateCollection(ctx, "Work", "")
	require.NoError(t, err)
	member := f.publish(t, ctx, EntryInput{Title: "t", Content: "c", Mood: "happy", CollectionID: c.ID})
	loose := f.publish(t, ctx, happy("loose"))

	got, err := f.svc.Get(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Collection)
	assert.Equal(t, "Work", got.Collection.Name)

	f.invalidator.calls = nil
	require.NoError(t, f.svc.DeleteCollection(ctx, c.ID))
	assert.Contains(t, f.invalidator.calls, user.ID+" "+DashboardPath)
	assert.Contains(t, f.invalidator.calls, user.ID+" "+EntryPath(member.ID))
	assert.NotContains(t, f.invalidator.calls, user.ID+" "+EntryPath(loose.ID))

	got, err = f.svc.Get(ctx, member.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CollectionID)
	assert.Nil(t, got.Collection)
}
