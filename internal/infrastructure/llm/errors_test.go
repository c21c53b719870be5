package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(genai.APIError{Code: 429, Message: "quota"}))
	assert.True(t, IsTransientError(fmt.Errorf("call: %w", genai.APIError{Code: 503})))
	assert.False(t, IsTransientError(genai.APIError{Code: 400, Message: "bad request"}))
	assert.False(t, IsTransientError(genai.APIError{Code: 403}))

	assert.True(t, IsTransientError(errors.New("error, status code: 429, message: Rate limit reached")))
	assert.True(t, IsTransientError(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.False(t, IsTransientError(errors.New("error, status code: 401, message: invalid api key")))
	assert.False(t, IsTransientError(nil))
}

func TestToGenaiContents(t *testing.T) {
	sys, contents := toGenaiContents([]*schema.Message{
		schema.SystemMessage("be brief"),
		schema.UserMessage("idea"),
		schema.AssistantMessage("ok", nil),
		nil,
	})
	assert.Equal(t, "be brief", sys)
	if assert.Len(t, contents, 2) {
		assert.Equal(t, string(genai.RoleUser), string(contents[0].Role))
		assert.Equal(t, string(genai.RoleModel), string(contents[1].Role))
	}
}
