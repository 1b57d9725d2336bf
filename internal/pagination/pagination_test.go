package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset string
		want          Params
	}{
		{"defaults", "", "", Params{Limit: 10, Offset: 0}},
		{"explicit", "5", "20", Params{Limit: 5, Offset: 20}},
		{"zero limit", "0", "0", Params{Limit: 0, Offset: 0}},
		{"non numeric", "abc", "x", Params{Limit: 10, Offset: 0}},
		{"negative", "-1", "-3", Params{Limit: 10, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.limit, tt.offset, 10))
		})
	}
}

func TestApplyWindowSize(t *testing.T) {
	items := make([]int, 17)
	for i := range items {
		items[i] = i
	}

	for limit := 0; limit <= 20; limit++ {
		for offset := 0; offset <= 20; offset++ {
			got, meta := Apply(items, Params{Limit: limit, Offset: offset})

			want := min(limit, max(0, len(items)-offset))
			assert.Len(t, got, want, "limit=%d offset=%d", limit, offset)
			assert.Equal(t, offset+limit < len(items), meta.HasMore, "limit=%d offset=%d", limit, offset)
			assert.Equal(t, len(items), meta.Total)
			if want > 0 {
				assert.Equal(t, offset, got[0])
			}
		}
	}
}

func TestApplyEmptyIsNotNil(t *testing.T) {
	got, meta := Apply([]string{}, Params{Limit: 10})
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, meta.HasMore)
}

func TestApplyHugeLimit(t *testing.T) {
	p := Parse("9223372036854775807", "1", 50)

	got, meta := Apply([]int{1, 2, 3}, p)
	assert.Equal(t, []int{2, 3}, got)
	assert.False(t, meta.HasMore)
	assert.Equal(t, 3, meta.Total)

	got, meta = Apply([]int{1, 2, 3}, Params{Limit: 1, Offset: 9223372036854775807})
	assert.Empty(t, got)
	assert.False(t, meta.HasMore)
}
