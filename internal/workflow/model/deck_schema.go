package model

import (
	"fmt"

	"pitchforge-ai-api/internal/domain/entity"
)

// MarketDataKey 模型输出中以十亿为单位的市场数值对象
const MarketDataKey = "MARKET_DATA"

// DeckContentKeys 按模板顺序返回模型输出的全部文本键
func DeckContentKeys() []string {
	keys := []string{entity.TokenCompanyName, entity.TokenTagline, entity.TokenSubtitle}
	for _, f := range entity.ListFields {
		for i := 1; i <= f.Count; i++ {
			keys = append(keys, fmt.Sprintf("%s_%d", f.Prefix, i))
		}
		if f.Prefix == "FLOW" {
			keys = append(keys, entity.TokenTAM, entity.TokenSAM, entity.TokenSOM)
		}
	}
	return append(keys, entity.TokenVisionStatement)
}

// DeckContentJSONSchema 内容输出的 JSON Schema
// 只约束结构，条目长度与市场数值的合理性由修复逻辑处理
func DeckContentJSONSchema() map[string]any {
	keys := DeckContentKeys()
	props := make(map[string]any, len(keys)+1)
	required := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		props[k] = map[string]any{"type": "string", "minLength": 1}
		required = append(required, k)
	}
	props[MarketDataKey] = map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"TAM", "SAM", "SOM"},
		"properties": map[string]any{
			"TAM": map[string]any{"type": "number", "exclusiveMinimum": 0},
			"SAM": map[string]any{"type": "number", "exclusiveMinimum": 0},
			"SOM": map[string]any{"type": "number", "exclusiveMinimum": 0},
		},
	}
	required = append(required, MarketDataKey)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"required":             required,
		"properties":           props,
	}
}
