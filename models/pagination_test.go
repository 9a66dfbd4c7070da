package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name        string
		page, limit string
		want        Page
		wantErr     bool
	}{
		{"defaults", "", "", Page{Page: 1, Limit: DefaultPageLimit}, false},
		{"explicit", "3", "25", Page{Page: 3, Limit: 25}, false},
		{"limit capped", "1", "1000", Page{Page: 1, Limit: MaxPageLimit}, false},
		{"zero page", "0", "", Page{}, true},
		{"negative limit", "", "-5", Page{}, true},
		{"not a number", "abc", "", Page{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePage(tt.page, tt.limit)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPage_OffsetAndTotalPages(t *testing.T) {
	p := Page{Page: 2, Limit: 10}
	assert.Equal(t, 10, p.Offset())
	assert.Equal(t, 3, p.TotalPages(25))
	assert.Equal(t, 2, p.TotalPages(20))
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, Page{Page: 1, Limit: 10}.TotalPages(1))
}

func TestError_KindAndMessage(t *testing.T) {
	err := Conflict("slug %q taken", "toys")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrBadRequest))
	assert.Equal(t, `slug "toys" taken`, err.Error())
}
