package originhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderCaseInsensitiveLookup(t *testing.T) {
	h := NewHeader()
	h.Add("x-foo", "a")
	h.Add("X-Foo", "b")

	assert.Equal(t, "b", h.Get("X-FOO"))
	assert.Equal(t, []string{"a", "b"}, h.Values("x-foo"))
	assert.True(t, h.Has("X-fOo"))
}

func TestHeaderSetPreservesFirstOccurrenceCase(t *testing.T) {
	h := NewHeader()
	h.Add("Content-Type", "text/plain")
	h.Set("content-type", "application/json")

	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, []string{"Content-Type"}, h.Keys())
}

func TestHeaderDel(t *testing.T) {
	h := NewHeader()
	h.Add("X-Foo", "a")
	h.Add("X-Bar", "b")
	h.Del("x-foo")

	assert.Equal(t, "", h.Get("X-Foo"))
	assert.Equal(t, "b", h.Get("X-Bar"))
}

func TestHeaderHasToken(t *testing.T) {
	h := NewHeader()
	h.Add("Connection", "keep-alive, Upgrade")

	assert.True(t, h.HasToken("Connection", "upgrade"))
	assert.True(t, h.HasToken("Connection", "Keep-Alive"))
	assert.False(t, h.HasToken("Connection", "close"))
}

func TestHeaderRangePreservesInsertionOrder(t *testing.T) {
	h := NewHeader()
	h.Add("B", "2")
	h.Add("A", "1")

	var keys []string
	h.Range(func(k, v string) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []string{"B", "A"}, keys)
}
