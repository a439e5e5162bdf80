package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewtec/triador/internal/domain"
)

func TestStack_PushPopLIFO(t *testing.T) {
	s := New()

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := s.Push(name, "cats")
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.Len())

	// pops come back newest first
	for _, want := range []string{"c.jpg", "b.jpg", "a.jpg"} {
		action, err := s.Pop()
		require.NoError(t, err)
		assert.Equal(t, want, action.ImageName)
	}
	assert.Equal(t, 0, s.Len())

	_, err := s.Pop()
	assert.ErrorIs(t, err, domain.ErrEmptyStack)
}

func TestStack_DuplicateImageRejected(t *testing.T) {
	s := New()

	_, err := s.Push("a.jpg", "cats")
	require.NoError(t, err)

	_, err = s.Push("a.jpg", "dogs")
	assert.ErrorIs(t, err, domain.ErrAlreadyPending)
	assert.Equal(t, 1, s.Len())

	// popping frees the name again
	_, err = s.Pop()
	require.NoError(t, err)
	_, err = s.Push("a.jpg", "dogs")
	assert.NoError(t, err)
}

func TestStack_PeekAllOldestFirst(t *testing.T) {
	s := New()
	_, err := s.Push("a.jpg", "cats")
	require.NoError(t, err)
	_, err = s.Push("b.jpg", "dogs")
	require.NoError(t, err)

	all := s.PeekAll()
	require.Len(t, all, 2)
	assert.Equal(t, "a.jpg", all[0].ImageName)
	assert.Equal(t, "b.jpg", all[1].ImageName)

	// the returned slice is a copy
	all[0].ImageName = "mutated"
	assert.Equal(t, "a.jpg", s.PeekAll()[0].ImageName)
}

func TestStack_DrainReturnsInsertionOrderAndClears(t *testing.T) {
	s := New()
	_, err := s.Push("a.jpg", "cats")
	require.NoError(t, err)
	_, err = s.Push("b.jpg", "dogs")
	require.NoError(t, err)

	drained := s.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "a.jpg", drained[0].ImageName)
	assert.Equal(t, "b.jpg", drained[1].ImageName)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Drain())
}

func TestStack_CountForAndContains(t *testing.T) {
	s := New()
	_, err := s.Push("a.jpg", "cats")
	require.NoError(t, err)
	_, err = s.Push("b.jpg", "cats")
	require.NoError(t, err)
	_, err = s.Push("c.jpg", "dogs")
	require.NoError(t, err)

	assert.Equal(t, 2, s.CountFor("cats"))
	assert.Equal(t, 1, s.CountFor("dogs"))
	assert.Equal(t, 0, s.CountFor("birds"))
	assert.True(t, s.Contains("b.jpg"))
	assert.False(t, s.Contains("z.jpg"))
}
