package llm

import (
	"errors"
	"strings"

	"google.golang.org/genai"

	"pitchforge-ai-api/pkg/retry"
)

// IsTransientError 判断模型调用错误是否值得重试：限流、服务端错误、网络抖动
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if retry.IsNetworkTransient(err) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.IsTransientStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retry.IsTransientStatus(apiErrPtr.Code)
	}

	// OpenAI 兼容接口的错误只暴露在文本中
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"status code: 429", "status code: 500", "status code: 502", "status code: 503", "status code: 504",
		"rate limit", "too many requests", "overloaded", "temporarily unavailable", "connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
