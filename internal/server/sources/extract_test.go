package sources

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_Accessors(t *testing.T) {
	f, err := DecodeFields(json.RawMessage(`{
		"post_id": 123,
		"title": "  Hello ",
		"amount": 12345678901234567890,
		"topic": {"name": "General"},
		"tags": ["a", {"name": "b"}, "", 7],
		"empty": "",
		"nested": {"deep": {"flag": true}}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "123", f.String("post_id"))
	assert.Equal(t, "Hello", f.String("title"))
	assert.Equal(t, "12345678901234567890", f.String("amount"))
	assert.Equal(t, "General", f.String("topic", "name"))
	assert.Equal(t, "true", f.String("nested", "deep", "flag"))
	assert.Equal(t, []string{"a", "b", "7"}, f.Strings("tags"))

	assert.Equal(t, "def", f.StringOr("def", "empty"))
	assert.Equal(t, "def", f.StringOr("def", "missing"))
	assert.Equal(t, "def", f.StringOr("def", "topic"))
	assert.Equal(t, "", f.String("title", "sub"))

	assert.Equal(t, "Hello", f.FirstString("missing", "empty", "title"))
	assert.Nil(t, f.Strings("title"))
}

func TestDecodeFields(t *testing.T) {
	f, err := DecodeFields(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = DecodeFields(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestFallbackID(t *testing.T) {
	assert.Equal(t, "index-0", fallbackID(0))
	assert.Equal(t, "index-17", fallbackID(17))
}
