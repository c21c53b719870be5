package synth

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"pitchforge-ai-api/internal/domain/entity"
	wfmodel "pitchforge-ai-api/internal/workflow/model"
)

// 缺失文本的兜底值
const (
	DefaultCompanyName = "Startup"
	DefaultText        = "To be determined"
)

// 超出定长的平铺键最多向后扫描的数量
const extraScan = 8

// normalizeKeys 键统一为大写下划线形式，容忍 problem_1、Problem-1 等写法
func normalizeKeys(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		nk := strings.ToUpper(strings.TrimSpace(k))
		nk = strings.NewReplacer(" ", "_", "-", "_").Replace(nk)
		if _, exists := out[nk]; exists && nk != k {
			continue
		}
		out[nk] = v
	}
	return out
}

func hasAnyKnownKey(data map[string]any) bool {
	norm := normalizeKeys(data)
	for _, k := range wfmodel.DeckContentKeys() {
		if _, ok := norm[k]; ok {
			return true
		}
	}
	for _, f := range entity.ListFields {
		for _, alias := range sectionAliases(f) {
			if _, ok := norm[alias]; ok {
				return true
			}
		}
	}
	_, ok := norm[wfmodel.MarketDataKey]
	return ok
}

// textValue 取非空文本；数字、布尔值转为字符串
func textValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	switch v.(type) {
	case map[string]any, []any:
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func sectionAliases(f entity.ListField) []string {
	aliases := []string{f.Section}
	if f.Prefix != f.Section {
		aliases = append(aliases, f.Prefix)
	}
	if plural := f.Prefix + "S"; plural != f.Section {
		aliases = append(aliases, plural)
	}
	return aliases
}

// Repair 把任意结构的模型输出修复为定长的 ContentModel，返回被修复的字段
func Repair(data map[string]any) (*entity.ContentModel, []string) {
	norm := normalizeKeys(data)
	content := &entity.ContentModel{}
	var repaired []string

	for _, f := range entity.ScalarFields {
		if s, ok := textValue(norm[f.Token]); ok {
			f.Set(content, s)
			continue
		}
		def := DefaultText
		if f.Token == entity.TokenCompanyName {
			def = DefaultCompanyName
		}
		f.Set(content, def)
		repaired = append(repaired, f.Token)
	}

	for _, f := range entity.ListFields {
		items, fixed := repairList(norm, f)
		f.Set(content, items)
		repaired = append(repaired, fixed...)
	}

	market, fixed := repairMarket(norm)
	content.Market = market
	repaired = append(repaired, fixed...)

	return content, repaired
}

// repairList 平铺键优先，缺失位置从整段数组补齐，多余截断，不足填充兜底值
func repairList(norm map[string]any, f entity.ListField) ([]string, []string) {
	var section []string
	for _, alias := range sectionAliases(f) {
		arr, ok := norm[alias].([]any)
		if !ok {
			continue
		}
		for _, item := range arr {
			if s, ok := textValue(item); ok {
				section = append(section, s)
			}
		}
		break
	}

	items := make([]string, f.Count)
	var repaired []string
	for i := 0; i < f.Count; i++ {
		token := fmt.Sprintf("%s_%d", f.Prefix, i+1)
		if s, ok := textValue(norm[token]); ok {
			items[i] = s
			continue
		}
		if i < len(section) {
			items[i] = section[i]
			continue
		}
		items[i] = DefaultText
		repaired = append(repaired, token)
	}

	// 平铺键超出定长的部分被丢弃
	for i := f.Count + 1; i <= f.Count+extraScan; i++ {
		if _, ok := norm[fmt.Sprintf("%s_%d", f.Prefix, i)]; ok {
			repaired = append(repaired, fmt.Sprintf("%s_truncated", f.Prefix))
			break
		}
	}
	if len(section) > f.Count {
		repaired = append(repaired, fmt.Sprintf("%s_truncated", f.Prefix))
	}
	return items, dedupe(repaired)
}

// repairMarket 优先使用 MARKET_DATA 数值，其次解析 *_VALUE 展示文本，最后按比例兜底
func repairMarket(norm map[string]any) (entity.MarketSize, []string) {
	numeric := map[string]any{}
	if m, ok := norm[wfmodel.MarketDataKey].(map[string]any); ok {
		numeric = normalizeKeys(m)
	}

	value := func(key, displayToken string) float64 {
		if v, ok := numeric[key]; ok && v != nil {
			if f, err := cast.ToFloat64E(v); err == nil && f > 0 {
				return f
			}
			if s, ok := textValue(v); ok {
				if f, ok := entity.ParseDisplay(s); ok {
					return f
				}
			}
		}
		if s, ok := textValue(norm[displayToken]); ok {
			if f, ok := entity.ParseDisplay(s); ok {
				return f
			}
		}
		return 0
	}

	return entity.NormalizeMarket(
		value("TAM", entity.TokenTAM),
		value("SAM", entity.TokenSAM),
		value("SOM", entity.TokenSOM),
	)
}

func dedupe(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
