package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityIDFields(t *testing.T) {
	id := NewEntityID(1234, 77)
	assert.Equal(t, uint32(1234), id.Index())
	assert.Equal(t, uint32(77), id.Generation())
	assert.False(t, id.IsZero())
	assert.False(t, id.Locked())

	var empty EntityID
	assert.True(t, empty.IsZero())
	assert.True(t, NewEntityID(0, 0) != empty, "slot 0 generation 0 must differ from the empty id")
}

func TestEntityIDLock(t *testing.T) {
	id := NewEntityID(5, 3)
	locked := id.Lock()

	assert.True(t, locked.Locked())
	assert.NotEqual(t, id, locked)
	assert.Equal(t, id, locked.Unlocked())
	assert.Equal(t, id.Index(), locked.Index())
	assert.Equal(t, id.Generation(), locked.Generation())
	assert.Equal(t, id.Public(), locked.Public())
}

func TestEntityIDGenerationWraps(t *testing.T) {
	id := NewEntityID(9, generationMask)
	next := NewEntityID(9, id.Generation()+1)
	assert.Equal(t, uint32(0), next.Generation())
	assert.Equal(t, uint32(9), next.Index())
	assert.NotEqual(t, id, next)
}

func TestEntityIDPublicFitsJSNumber(t *testing.T) {
	id := NewEntityID(MaxSlots-1, generationMask).Lock()
	assert.Less(t, id.Public(), uint64(1)<<53)
}
