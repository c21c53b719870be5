package textrun

import "strings"

// Delimiters 占位符的起止定界符
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters 默认定界符 {{KEY}}
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// Wrap 生成占位符文本
func (d Delimiters) Wrap(name string) string {
	return d.Open + name + d.Close
}

// Scan 按出现顺序返回文本中的占位符名（去重），名称仅允许大写字母、数字与下划线
func (d Delimiters) Scan(text string) []string {
	if d.Open == "" || d.Close == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var names []string
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], d.Open)
		if i < 0 {
			break
		}
		begin := off + i + len(d.Open)
		j := strings.Index(text[begin:], d.Close)
		if j < 0 {
			break
		}
		name := text[begin : begin+j]
		if isTokenName(name) {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
			off = begin + j + len(d.Close)
			continue
		}
		off = off + i + 1
	}
	return names
}

func isTokenName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

// Defuse 去掉文本中的定界符，替换值本身不会再被识别为占位符
func (d Delimiters) Defuse(s string) string {
	if d.Open == "" || d.Close == "" {
		return s
	}
	if !strings.Contains(s, d.Open) {
		return s
	}
	return strings.NewReplacer(d.Open, "", d.Close, "").Replace(s)
}
