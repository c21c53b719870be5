package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```{\"a\":1}```":         `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in), in)
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"COMPANY_NAME":"Pawly"}`, ExtractJSONObject("Here you go:\n```json\n{\"COMPANY_NAME\":\"Pawly\"}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSONObject(`note {"a":{"b":2}} trailing`))
	assert.Equal(t, "", ExtractJSONObject("   "))
}

func TestIsStructuredOutputUnsupported(t *testing.T) {
	assert.True(t, IsStructuredOutputUnsupported(assertErr("400: unknown parameter response_format")))
	assert.True(t, IsStructuredOutputUnsupported(assertErr("Error 400: response_mime_type is not supported for this model")))
	assert.True(t, IsStructuredOutputUnsupported(assertErr("Unknown Parameter: Response.Schema")))
	assert.False(t, IsStructuredOutputUnsupported(assertErr("connection reset by peer")))
	assert.False(t, IsStructuredOutputUnsupported(assertErr("unknown parameter: temperature")))
	assert.False(t, IsStructuredOutputUnsupported(nil))
}

func TestClipForLog(t *testing.T) {
	assert.Equal(t, "abc", ClipForLog("abc", 3))
	assert.Equal(t, "市场...(truncated)", ClipForLog("市场规模", 2))
	assert.Equal(t, "", ClipForLog("abc", 0))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
