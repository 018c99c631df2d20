package service

import (
	"fitlook/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultItems(ids ...string) []entity.TryOnResultItem {
	items := make([]entity.TryOnResultItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, entity.TryOnResultItem{Garment: entity.DbGarment{ID: id}, URL: "https://store.test/" + id})
	}
	return items
}

func TestResultCursorWraps(t *testing.T) {
	tests := []struct {
		name  string
		ids   []string
		moves []string
		want  []int
	}{
		{
			name:  "向后越过末尾回到开头",
			ids:   []string{"a", "b", "c"},
			moves: []string{"next", "next", "next"},
			want:  []int{1, 2, 0},
		},
		{
			name:  "向前越过开头回到末尾",
			ids:   []string{"a", "b", "c"},
			moves: []string{"prev", "prev", "next"},
			want:  []int{2, 1, 2},
		},
		{
			name:  "只有一个结果",
			ids:   []string{"a"},
			moves: []string{"next", "prev", "prev"},
			want:  []int{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor := NewResultCursor(resultItems(tt.ids...))
			for i, move := range tt.moves {
				var got int
				if move == "next" {
					got = cursor.Next()
				} else {
					got = cursor.Prev()
				}
				assert.Equal(t, tt.want[i], got, "move %d (%s)", i, move)
			}
		})
	}
}

func TestResultCursorFullCycleReturnsToStart(t *testing.T) {
	for n := 1; n <= 5; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		cursor := NewResultCursor(resultItems(ids...))
		for i := 0; i < n; i++ {
			cursor.Next()
		}
		assert.Equal(t, 0, cursor.Index(), "n=%d next", n)
		for i := 0; i < n; i++ {
			cursor.Prev()
		}
		assert.Equal(t, 0, cursor.Index(), "n=%d prev", n)
	}
}

func TestResultCursorSelect(t *testing.T) {
	cursor := NewResultCursor(resultItems("a", "b", "c"))

	require.NoError(t, cursor.Select(2))
	item, ok := cursor.Current()
	require.True(t, ok)
	assert.Equal(t, "c", item.Garment.ID)

	assert.Error(t, cursor.Select(3))
	assert.Error(t, cursor.Select(-1))
	assert.Equal(t, 2, cursor.Index())
}

func TestResultCursorEmpty(t *testing.T) {
	cursor := NewResultCursor(nil)
	assert.Equal(t, 0, cursor.Next())
	assert.Equal(t, 0, cursor.Prev())
	_, ok := cursor.Current()
	assert.False(t, ok)
	assert.Error(t, cursor.Select(0))
}

func TestResultCursorCopiesInput(t *testing.T) {
	items := resultItems("a", "b")
	cursor := NewResultCursor(items)
	items[0].URL = "mutated"

	got := cursor.Results()
	assert.Equal(t, "https://store.test/a", got[0].URL)
}
