package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParams(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Offset: 0}, NewParams(0, 0))
	assert.Equal(t, Params{Page: 3, Limit: 10, Offset: 20}, NewParams(3, 10))
	assert.Equal(t, MaxLimit, NewParams(1, 5000).Limit)
}

func TestNewResponse(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	first := NewResponse(items, NewParams(1, 3))
	assert.Equal(t, []int{1, 2, 3}, first.Data)
	assert.Equal(t, Meta{Page: 1, Limit: 3, Total: 7, TotalPages: 3, HasNext: true}, first.Meta)

	last := NewResponse(items, NewParams(3, 3))
	assert.Equal(t, []int{7}, last.Data)
	assert.False(t, last.Meta.HasNext)
	assert.True(t, last.Meta.HasPrev)

	past := NewResponse(items, NewParams(9, 3))
	assert.Empty(t, past.Data)

	empty := NewResponse([]int{}, NewParams(1, 3))
	assert.Equal(t, 0, empty.Meta.TotalPages)
}
