package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: 20}},
		{"page=3&limit=10", Params{Page: 3, Limit: 10}},
		{"page=0&limit=-5", Params{Page: 1, Limit: 20}},
		{"page=two&limit=ten", Params{Page: 1, Limit: 20}},
		{"limit=500", Params{Page: 1, Limit: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQuery(tt.query))
		})
	}
	assert.Equal(t, 20, Params{Page: 3, Limit: 10}.Offset())
}

func TestNewList(t *testing.T) {
	l := NewList([]string{"a", "b"}, 21, Params{Page: 1, Limit: 10})
	assert.Equal(t, 3, l.TotalPages)
	assert.Len(t, l.Items, 2)

	empty := NewList[string](nil, 0, Params{Page: 1, Limit: 10})
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}
