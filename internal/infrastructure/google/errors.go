package google

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"pitchforge-ai-api/pkg/retry"
)

var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"backendError":          true,
}

// IsTransient 限流、服务端错误值得重试
func IsTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if retry.IsTransientStatus(apiErr.Code) {
		return true
	}
	// Drive 的配额错误以 403 返回
	if apiErr.Code == http.StatusForbidden {
		for _, item := range apiErr.Errors {
			if rateLimitReasons[item.Reason] {
				return true
			}
		}
	}
	return false
}

// IsRateLimited 请求被拒绝且未执行，非幂等调用只在这种情况下重试
func IsRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if apiErr.Code == http.StatusForbidden {
		for _, item := range apiErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// IsNotFound 文档或表格不存在
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
