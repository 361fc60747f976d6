package command

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protoCmd(name string, addr, code uint16) StoredCommand {
	return StoredCommand{
		Name:         name,
		Kind:         KindProtocol,
		ProtocolName: "NEC",
		Address:      addr,
		Command:      code,
	}
}

func TestStoreUpsertThenLookup(t *testing.T) {
	s := NewStore(4)

	require.NoError(t, s.Upsert(protoCmd("tv_power", 7, 2)))
	got, ok := s.Lookup("tv_power")
	require.True(t, ok)
	assert.Equal(t, uint16(2), got.Command)

	// Update in place: latest value wins, no duplicate entry.
	require.NoError(t, s.Upsert(protoCmd("tv_power", 7, 9)))
	got, ok = s.Lookup("tv_power")
	require.True(t, ok)
	assert.Equal(t, uint16(9), got.Command)
	assert.Equal(t, 1, s.Count())
}

func TestStoreLookupMissing(t *testing.T) {
	s := NewStore(4)
	_, ok := s.Lookup("nope")
	assert.False(t, ok)
}

func TestStoreCapacity(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Upsert(protoCmd(fmt.Sprintf("cmd%d", i), 1, uint16(i))))
	}

	err := s.Upsert(protoCmd("overflow", 1, 99))
	assert.ErrorIs(t, err, ErrCacheFull)
	assert.Equal(t, 3, s.Count())
	_, ok := s.Lookup("overflow")
	assert.False(t, ok)

	// Updating an existing name at capacity still works in place.
	require.NoError(t, s.Upsert(protoCmd("cmd1", 1, 42)))
	got, ok := s.Lookup("cmd1")
	require.True(t, ok)
	assert.Equal(t, uint16(42), got.Command)
	assert.Equal(t, []string{"cmd0", "cmd1", "cmd2"}, s.Names())
}

func TestStoreDeletePreservesOrder(t *testing.T) {
	s := NewStore(5)
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Upsert(protoCmd(name, 0, 0)))
	}

	require.NoError(t, s.Delete("b"))
	assert.Equal(t, []string{"a", "c", "d"}, s.Names())
	assert.Equal(t, 3, s.Count())

	err := s.Delete("b")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"a", "c", "d"}, s.Names())
}
