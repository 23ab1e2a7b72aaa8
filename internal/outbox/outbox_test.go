package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Outbox {
	t.Helper()
	o, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func TestEntries_KeyOrder(t *testing.T) {
	o := openTest(t)
	require.NoError(t, o.Put("01B", []byte("second")))
	require.NoError(t, o.Put("01C", []byte("third")))
	require.NoError(t, o.Put("01A", []byte("first")))

	entries, err := o.Entries(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"01A", "01B", "01C"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, "first", string(entries[0].Payload))

	limited, err := o.Entries(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPut_Replaces(t *testing.T) {
	o := openTest(t)
	require.NoError(t, o.Put("x", []byte("v1")))
	require.NoError(t, o.Put("x", []byte("v2")))

	entries, err := o.Entries(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "v2", string(entries[0].Payload))
}

func TestDelete(t *testing.T) {
	o := openTest(t)
	require.NoError(t, o.Put("a", []byte("1")))
	require.NoError(t, o.Delete("a"))
	require.NoError(t, o.Delete("never-there"))

	n, err := o.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0

	o, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, o.Put("01A", []byte("pending")))
	require.NoError(t, o.Close())

	o, err = Open(cfg)
	require.NoError(t, err)
	defer o.Close()
	entries, err := o.Entries(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pending", string(entries[0].Payload))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
