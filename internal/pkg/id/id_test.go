package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SortableAndUnique(t *testing.T) {
	a, b := New(), New()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestNewRoomID_IsRandomUUID(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		v := NewRoomID()
		parsed, err := uuid.Parse(v)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
		_, dup := seen[v]
		require.False(t, dup, "duplicate room id %s", v)
		seen[v] = struct{}{}
	}
}
