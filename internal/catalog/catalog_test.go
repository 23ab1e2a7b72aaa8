package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_AssignsStableID(t *testing.T) {
	c := New()
	txt, dup := c.Add("Gettysburg", "gettysburg.txt", "Four score and seven years ago")
	require.False(t, dup)
	assert.Equal(t, TextID(ContentHashHex([]byte("Four score and seven years ago"))), txt.ID)
	assert.Len(t, txt.ID, len("txt_")+16)
	assert.Equal(t, 30, txt.Runes)

	other := New()
	again, _ := other.Add("different title", "x.md", "Four score and seven years ago")
	assert.Equal(t, txt.ID, again.ID, "id depends on content only")
}

func TestAdd_Deduplicates(t *testing.T) {
	c := New()
	first, _ := c.Add("One", "one.txt", "same body")
	second, dup := c.Add("Two", "two.txt", "same body")
	assert.True(t, dup)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestRunesCountsCodePoints(t *testing.T) {
	c := New()
	txt, _ := c.Add("", "", "naïve café")
	assert.Equal(t, 10, txt.Runes)
}

func TestGet(t *testing.T) {
	c := New()
	txt, _ := c.Add("T", "t.txt", "body")

	got, err := c.Get(txt.ID)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Body)

	_, err = c.Get("txt_missing")
	assert.ErrorIs(t, err, ErrTextNotFound)
}

func TestList_OldestFirst(t *testing.T) {
	c := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	a, _ := c.Add("a", "", "alpha")
	b, _ := c.Add("b", "", "beta")
	d, _ := c.Add("c", "", "gamma")

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{a.ID, b.ID, d.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}
