package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	assert.Equal(t, "", Query())
	assert.Equal(t, "key=some+value&ids=1&ids=2", Query(Plain("key", "some value"), Array("ids", "1", "2")))
}

func TestWithQuery(t *testing.T) {
	tests := []struct {
		path   string
		fields []Field
		want   string
	}{
		{"/search", []Field{Plain("q", "go")}, "/search?q=go"},
		{"/search?old=1", []Field{Plain("q", "go")}, "/search?q=go"},
		{"/search?old=1#frag", nil, "/search"},
		{"/a#b?c", []Field{Plain("x", "&")}, "/a?x=%26"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WithQuery(tt.path, tt.fields...), tt.path)
	}
}
