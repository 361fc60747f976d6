package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "commands.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := openTemp(t)

	require.NoError(t, a.SaveEncoded("tv_power", []byte(`{"proto":"NEC","addr":7,"cmd":2}`)))
	require.NoError(t, a.SaveEncoded("fan_power", []byte(`{"raw":true,"data":[1,2]}`)))

	recs, err := a.LoadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "tv_power", recs[0].Name)
	assert.Equal(t, `{"proto":"NEC","addr":7,"cmd":2}`, recs[0].Payload)
}

func TestSaveOverwrites(t *testing.T) {
	a := openTemp(t)

	require.NoError(t, a.SaveEncoded("tv_power", []byte(`{"cmd":1}`)))
	require.NoError(t, a.SaveEncoded("tv_power", []byte(`{"cmd":2}`)))

	recs, err := a.LoadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, `{"cmd":2}`, recs[0].Payload)
}

func TestRemove(t *testing.T) {
	a := openTemp(t)

	require.NoError(t, a.SaveEncoded("tv_power", []byte(`{}`)))
	require.NoError(t, a.Remove("tv_power"))
	require.NoError(t, a.Remove("never_there"))

	recs, err := a.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, recs)
}
