// Package moods holds the static mood catalog that journal entries are tagged with.
package moods

import (
	"fmt"
	"strings"
)

// Mood is one of a fixed set of catalog moods. The zero value is not a valid mood.
type Mood int

const (
	Invalid Mood = iota
	Happy
	Grateful
	Excited
	Peaceful
	Hopeful
	Curious
	Neutral
	Tired
	Anxious
	Sad
	Frustrated
	Angry
)

// Descriptor is the display and enrichment data for a mood.
type Descriptor struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Emoji      string `json:"emoji"`
	Score      int    `json:"score"`
	Color      string `json:"color"`
	Prompt     string `json:"prompt"`
	ImageQuery string `json:"pixabayQuery"`
}

// catalog is indexed by Mood; every constant above Invalid must have a row.
var catalog = [...]Descriptor{
	Invalid:    {},
	Happy:      {ID: "HAPPY", Label: "Happy", Emoji: "😊", Score: 8, Color: "amber", Prompt: "What's making you smile today?", ImageQuery: "happy joy"},
	Grateful:   {ID: "GRATEFUL", Label: "Grateful", Emoji: "🙏", Score: 9, Color: "yellow", Prompt: "What are you thankful for today?", ImageQuery: "gratitude thankful"},
	Excited:    {ID: "EXCITED", Label: "Excited", Emoji: "🤩", Score: 9, Color: "orange", Prompt: "What are you looking forward to?", ImageQuery: "excited celebration"},
	Peaceful:   {ID: "PEACEFUL", Label: "Peaceful", Emoji: "😌", Score: 7, Color: "emerald", Prompt: "What brings you peace right now?", ImageQuery: "peaceful calm nature"},
	Hopeful:    {ID: "HOPEFUL", Label: "Hopeful", Emoji: "🌟", Score: 7, Color: "sky", Prompt: "What are you hoping for?", ImageQuery: "hope sunrise"},
	Curious:    {ID: "CURIOUS", Label: "Curious", Emoji: "🤔", Score: 6, Color: "violet", Prompt: "What's on your mind lately?", ImageQuery: "curiosity wonder"},
	Neutral:    {ID: "NEUTRAL", Label: "Neutral", Emoji: "😐", Score: 5, Color: "gray", Prompt: "How was your day?", ImageQuery: "calm balance"},
	Tired:      {ID: "TIRED", Label: "Tired", Emoji: "😴", Score: 4, Color: "slate", Prompt: "What's draining your energy?", ImageQuery: "tired rest sleep"},
	Anxious:    {ID: "ANXIOUS", Label: "Anxious", Emoji: "😰", Score: 3, Color: "purple", Prompt: "What's causing you to worry?", ImageQuery: "anxiety stress"},
	Sad:        {ID: "SAD", Label: "Sad", Emoji: "😢", Score: 3, Color: "blue", Prompt: "What's troubling you?", ImageQuery: "sad rain"},
	Frustrated: {ID: "FRUSTRATED", Label: "Frustrated", Emoji: "😤", Score: 2, Color: "red", Prompt: "What's blocking your progress?", ImageQuery: "frustration storm"},
	Angry:      {ID: "ANGRY", Label: "Angry", Emoji: "😠", Score: 2, Color: "rose", Prompt: "What's making you upset?", ImageQuery: "angry fire"},
}

var byID = func() map[string]Mood {
	m := make(map[string]Mood, len(catalog)-1)
	for i := Happy; int(i) < len(catalog); i++ {
		m[catalog[i].ID] = i
	}
	return m
}()

// Parse resolves a caller-supplied identifier. Matching ignores case and
// surrounding whitespace; unknown identifiers return an error.
func Parse(identifier string) (Mood, error) {
	key := strings.ToUpper(strings.TrimSpace(identifier))
	if m, ok := byID[key]; ok {
		return m, nil
	}
	return Invalid, fmt.Errorf("unknown mood %q", identifier)
}

// Resolve returns the descriptor for identifier, or false if it is not in the catalog.
func Resolve(identifier string) (Descriptor, bool) {
	m, err := Parse(identifier)
	if err != nil {
		return Descriptor{}, false
	}
	return m.Descriptor(), true
}

// Valid reports whether m names a catalog row.
func (m Mood) Valid() bool {
	return m > Invalid && int(m) < len(catalog)
}

// Descriptor returns the catalog row for m. Invalid moods yield the zero Descriptor.
func (m Mood) Descriptor() Descriptor {
	if !m.Valid() {
		return Descriptor{}
	}
	return catalog[m]
}

// String returns the canonical uppercase identifier.
func (m Mood) String() string {
	return m.Descriptor().ID
}

// All returns the catalog in display order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(catalog)-1)
	for i := Happy; int(i) < len(catalog); i++ {
		out = append(out, catalog[i])
	}
	return out
}
