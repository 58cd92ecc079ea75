package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userID int64

func TestContextSetGet(t *testing.T) {
	c := NewContext()
	Set(c, userID(7))
	Set(c, "name")

	id, err := Get[userID](c)
	require.NoError(t, err)
	assert.Equal(t, userID(7), id)

	s, ok := Lookup[string](c)
	assert.True(t, ok)
	assert.Equal(t, "name", s)
	assert.Equal(t, 2, c.Len())
}

func TestContextLastWriteWins(t *testing.T) {
	c := NewContext()
	Set(c, userID(1))
	Set(c, userID(2))

	id, err := Get[userID](c)
	require.NoError(t, err)
	assert.Equal(t, userID(2), id)
	assert.Equal(t, 1, c.Len())
}

func TestContextDistinctTypes(t *testing.T) {
	c := NewContext()
	Set(c, int64(1))
	Set(c, userID(2))

	n, _ := Lookup[int64](c)
	id, _ := Lookup[userID](c)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, userID(2), id)
}

func TestContextMissing(t *testing.T) {
	c := NewContext()
	_, err := Get[userID](c)
	var missing *MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "dispatch.userID", missing.Type)

	Set(c, userID(1))
	Delete[userID](c)
	_, ok := Lookup[userID](c)
	assert.False(t, ok)
}

func TestContextClone(t *testing.T) {
	c := NewContext()
	Set(c, userID(1))

	cp := c.Clone()
	Set(cp, userID(2))
	Set(cp, "only in clone")

	id, _ := Lookup[userID](c)
	assert.Equal(t, userID(1), id)
	_, ok := Lookup[string](c)
	assert.False(t, ok)
	assert.Equal(t, 2, cp.Len())
}
