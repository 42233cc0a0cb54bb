package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationMeta(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		total     int64
		wantPages int64
	}{
		{"exact multiple", 1, 20, 40, 2},
		{"partial last page", 2, 20, 41, 3},
		{"empty result", 1, 20, 0, 0},
		{"single item", 1, 20, 1, 1},
		{"limit one", 3, 1, 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewPaginationMeta(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.wantPages, meta.Pages)
			assert.Equal(t, tt.page, meta.Page)
			assert.Equal(t, tt.limit, meta.Limit)
			assert.Equal(t, tt.total, meta.Total)
		})
	}
}
