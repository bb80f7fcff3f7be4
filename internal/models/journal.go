package models

import "time"

// Entry is a published, mood-tagged journal entry.
// Mood holds the canonical catalog identifier and MoodScore is the catalog
// score captured at write time; neither is recomputed on read.
type Entry struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	Mood         string         `json:"mood"`
	MoodScore    int            `json:"mood_score"`
	MoodImageURL *string        `json:"mood_image_url"`
	CollectionID *string        `json:"collection_id"`
	Collection   *CollectionRef `json:"collection,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Draft is the single in-progress entry a user may have. Mood is free text
// here because drafts are never checked against the catalog.
type Draft struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectionScope selects which entries a listing includes.
type CollectionScope int

const (
	// AllCollections lists every entry regardless of collection.
	AllCollections CollectionScope = iota
	// Unorganized lists entries without a collection.
	Unorganized
	// InCollection lists entries in EntryFilter.CollectionID.
	InCollection
)

// UnorganizedFilterValue is the query value clients send for Unorganized.
const UnorganizedFilterValue = "unorganized"

// EntryFilter narrows and orders an owner's entries.
type EntryFilter struct {
	Scope        CollectionScope
	CollectionID string
	Ascending    bool // default is newest first
}

// ParseEntryFilter builds a filter from the raw collection and order query values.
func ParseEntryFilter(collection, order string) EntryFilter {
	f := EntryFilter{Ascending: order == "asc"}
	switch collection {
	case "":
		f.Scope = AllCollections
	case UnorganizedFilterValue:
		f.Scope = Unorganized
	default:
		f.Scope = InCollection
		f.CollectionID = collection
	}
	return f
}

// CacheVariant is a stable key for this filter, used by the view cache.
func (f EntryFilter) CacheVariant() string {
	order := "desc"
	if f.Ascending {
		order = "asc"
	}
	switch f.Scope {
	case Unorganized:
		return UnorganizedFilterValue + "|" + order
	case InCollection:
		return "collection:" + f.CollectionID + "|" + order
	default:
		return "all|" + order
	}
}
