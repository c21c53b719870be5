// Package placeholder 将内容模型展开为模板占位符替换表
package placeholder

import (
	"fmt"

	"pitchforge-ai-api/internal/domain/entity"
)

// Count 替换表固定条目数：标量 4 个、列表 32 个、市场规模 3 个
func Count() int {
	n := len(entity.ScalarFields) + 3
	for _, f := range entity.ListFields {
		n += f.Count
	}
	return n
}

// Map 按模板顺序生成替换表。
// 内容模型在修复后必须是定长的，长度不符说明上游存在缺陷，直接 panic。
func Map(c *entity.ContentModel) *entity.PlaceholderTable {
	if c == nil {
		panic("placeholder: nil content model")
	}
	t := entity.NewPlaceholderTable(Count())

	must(t.Add(entity.TokenCompanyName, c.CompanyName))
	must(t.Add(entity.TokenTagline, c.Tagline))
	must(t.Add(entity.TokenSubtitle, c.Subtitle))

	for _, f := range entity.ListFields {
		items := f.Get(c)
		if len(items) != f.Count {
			panic(fmt.Sprintf("placeholder: %s has %d items, want %d", f.Prefix, len(items), f.Count))
		}
		for i, v := range items {
			must(t.Add(fmt.Sprintf("%s_%d", f.Prefix, i+1), v))
		}
		if f.Prefix == "FLOW" {
			must(t.Add(entity.TokenTAM, c.Market.TAM.Display))
			must(t.Add(entity.TokenSAM, c.Market.SAM.Display))
			must(t.Add(entity.TokenSOM, c.Market.SOM.Display))
		}
	}

	must(t.Add(entity.TokenVisionStatement, c.VisionStatement))
	return t
}

func must(err error) {
	if err != nil {
		panic("placeholder: " + err.Error())
	}
}
