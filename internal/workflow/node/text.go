package node

import "unicode/utf8"

const clipSuffix = "...(truncated)"

// ClipForLog 截断模型原文用于日志，保留前 maxRunes 个字符并标注截断
func ClipForLog(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + clipSuffix
		}
		n++
	}
	return s
}
