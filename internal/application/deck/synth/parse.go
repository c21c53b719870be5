package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	wfnode "pitchforge-ai-api/internal/workflow/node"
)

// ParseError 模型输出无法解析为 JSON 对象
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "unparseable content output: " + e.Reason + ": " + e.Err.Error()
	}
	return "unparseable content output: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseRaw 从模型输出中截取 JSON 对象；标准解析失败时尝试 jsonrepair 修复。
// 返回解析结果以及是否经过修复。
func ParseRaw(rawText string) (map[string]any, bool, error) {
	jsonText := wfnode.ExtractJSONObject(rawText)
	if strings.TrimSpace(jsonText) == "" {
		return nil, false, &ParseError{Reason: "empty output"}
	}

	var data map[string]any
	err := json.Unmarshal([]byte(jsonText), &data)
	if err == nil {
		if data == nil {
			return nil, false, &ParseError{Reason: "output is not a json object"}
		}
		return data, false, nil
	}
	origErr := err

	repaired, rerr := jsonrepair.JSONRepair(jsonText)
	if rerr != nil {
		return nil, false, &ParseError{Reason: "invalid json", Err: origErr}
	}
	data = nil
	if err := json.Unmarshal([]byte(repaired), &data); err != nil || data == nil {
		return nil, false, &ParseError{Reason: "invalid json after repair", Err: origErr}
	}
	// 修复后只剩空对象或无任何已知键，视为不可用
	if !hasAnyKnownKey(data) {
		return nil, false, &ParseError{Reason: fmt.Sprintf("no known keys in repaired output (%d keys)", len(data))}
	}
	return data, true, nil
}
