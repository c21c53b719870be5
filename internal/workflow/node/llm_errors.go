package node

import "strings"

// structuredOutputMarkers 供应商拒绝结构化输出参数时错误信息中的片段（小写）
var structuredOutputMarkers = [][]string{
	{"response_format"},
	{"json_schema"},
	{"response_schema"},
	{"response_mime_type"},
	{"unknown parameter", "response"},
	{"invalid", "response"},
	{"failed to parse"},
}

// IsStructuredOutputUnsupported 判断模型调用是否因不支持 JSON Schema 约束而失败，
// 此时调用方应退回仅靠提示词约束格式
func IsStructuredOutputUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, parts := range structuredOutputMarkers {
		if containsAll(msg, parts) {
			return true
		}
	}
	return false
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
