package moods

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIsCaseInsensitive(t *testing.T) {
	for _, in := range []string{"happy", "HAPPY", "Happy", "  hApPy "} {
		m, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, Happy, m)
		assert.Equal(t, "HAPPY", m.String())
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "joyful", "HAPPY!", "0"} {
		m, err := Parse(in)
		assert.Error(t, err, in)
		assert.Equal(t, Invalid, m)
		assert.False(t, m.Valid())
	}
}

func TestCatalogIsExhaustive(t *testing.T) {
	seen := map[string]bool{}
	for i := Happy; i <= Angry; i++ {
		d := i.Descriptor()
		require.NotEmpty(t, d.ID, "mood %d has no catalog row", i)
		assert.NotEmpty(t, d.Label)
		assert.NotEmpty(t, d.Emoji)
		assert.NotEmpty(t, d.Prompt)
		assert.NotEmpty(t, d.ImageQuery)
		assert.True(t, d.Score >= 1 && d.Score <= 10, "score out of range for %s", d.ID)
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true

		back, err := Parse(d.ID)
		require.NoError(t, err)
		assert.Equal(t, i, back)
	}
	assert.Len(t, All(), len(seen))
}

func TestResolve(t *testing.T) {
	d, ok := Resolve("sad")
	require.True(t, ok)
	assert.Equal(t, "SAD", d.ID)
	assert.Equal(t, 3, d.Score)

	_, ok = Resolve("meh")
	assert.False(t, ok)
}

func TestStringIsCanonicalID(t *testing.T) {
	m, err := Parse("grateful")
	require.NoError(t, err)
	assert.Equal(t, "GRATEFUL", m.String())
	assert.Equal(t, "", Invalid.String())
}
