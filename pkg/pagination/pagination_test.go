package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 1, 20, 0},
		{"explicit", "page=3&limit=50", 3, 50, 100},
		{"zero page", "page=0", 1, 20, 0},
		{"negative page", "page=-2", 1, 20, 0},
		{"zero limit", "limit=0", 1, 20, 0},
		{"limit clamped", "limit=500", 1, 100, 0},
		{"non-numeric", "page=abc&limit=xyz", 1, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(contextWithQuery(tt.query))
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, got.Offset)
		})
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Params{Page: 2, Limit: 25, Offset: 25}, 63)
	assert.Equal(t, Meta{Page: 2, Limit: 25, Total: 63}, meta)
}
