// Package textrun 提供带样式文本片段（run）上的整串查找替换
//
// 富文本会把一个占位符拆成多个样式片段，例如 "{{PRO" + "BLEM" + "_1}}"。
// 这里的匹配基于拼接后的完整文本，与片段如何切分无关；替换文本继承匹配起点所在片段的样式，
// 匹配范围之外的文本保持原片段与原样式。
package textrun

import (
	"strings"
)

// Style 文本样式
type Style struct {
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
	FontSize  float64 `json:"font_size,omitempty"`
	Font      string  `json:"font,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// Run 一段同样式文本
type Run struct {
	Text  string `json:"text"`
	Style Style  `json:"style"`
}

// Text 返回片段拼接后的完整文本
func Text(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// ReplaceAll 替换全部非重叠匹配（区分大小写），返回新片段与替换次数；不修改入参
func ReplaceAll(runs []Run, find, repl string) ([]Run, int) {
	if find == "" || len(runs) == 0 {
		return runs, 0
	}
	full := Text(runs)

	var starts []int
	for off := 0; off <= len(full)-len(find); {
		i := strings.Index(full[off:], find)
		if i < 0 {
			break
		}
		starts = append(starts, off+i)
		off += i + len(find)
	}
	if len(starts) == 0 {
		return runs, 0
	}

	out := make([]Run, len(runs))
	copy(out, runs)
	// 从右向左替换，左侧偏移量保持不变
	for k := len(starts) - 1; k >= 0; k-- {
		replaceSpan(out, starts[k], starts[k]+len(find), repl)
	}
	return compact(out), len(starts)
}

// replaceSpan 将 [start, end) 替换为 repl
func replaceSpan(runs []Run, start, end int, repl string) {
	first, last := -1, -1
	var firstOff, lastOff int
	pos := 0
	for i := range runs {
		n := len(runs[i].Text)
		if n == 0 {
			continue
		}
		if first < 0 && start >= pos && start < pos+n {
			first, firstOff = i, start-pos
		}
		if end > pos && end <= pos+n {
			last, lastOff = i, end-pos
			break
		}
		pos += n
	}
	if first < 0 || last < 0 {
		return
	}

	if first == last {
		t := runs[first].Text
		runs[first].Text = t[:firstOff] + repl + t[lastOff:]
		return
	}
	runs[first].Text = runs[first].Text[:firstOff] + repl
	for k := first + 1; k < last; k++ {
		runs[k].Text = ""
	}
	runs[last].Text = runs[last].Text[lastOff:]
}

// compact 去掉空片段
func compact(runs []Run) []Run {
	out := runs[:0]
	for _, r := range runs {
		if r.Text != "" {
			out = append(out, r)
		}
	}
	return out
}

// Split 在给定字节偏移处切分文本，生成同样式的多个片段
func Split(text string, style Style, cuts ...int) []Run {
	runs := make([]Run, 0, len(cuts)+1)
	prev := 0
	for _, c := range cuts {
		if c <= prev || c >= len(text) {
			continue
		}
		runs = append(runs, Run{Text: text[prev:c], Style: style})
		prev = c
	}
	return append(runs, Run{Text: text[prev:], Style: style})
}
