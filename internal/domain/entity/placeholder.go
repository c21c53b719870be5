package entity

import (
	"fmt"
)

// Placeholder 一个占位符及其替换文本
type Placeholder struct {
	Token string `json:"token"`
	Value string `json:"value"`
}

// PlaceholderTable 占位符替换表，键唯一且保持插入顺序
type PlaceholderTable struct {
	entries []Placeholder
	index   map[string]int
}

// NewPlaceholderTable 创建空表
func NewPlaceholderTable(capacity int) *PlaceholderTable {
	return &PlaceholderTable{
		entries: make([]Placeholder, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

// Add 追加一个占位符，重复键返回错误
func (t *PlaceholderTable) Add(token, value string) error {
	if token == "" {
		return fmt.Errorf("empty placeholder token")
	}
	if _, ok := t.index[token]; ok {
		return fmt.Errorf("duplicate placeholder token %q", token)
	}
	t.index[token] = len(t.entries)
	t.entries = append(t.entries, Placeholder{Token: token, Value: value})
	return nil
}

// Get 查询替换文本
func (t *PlaceholderTable) Get(token string) (string, bool) {
	i, ok := t.index[token]
	if !ok {
		return "", false
	}
	return t.entries[i].Value, true
}

// Has 是否包含占位符
func (t *PlaceholderTable) Has(token string) bool {
	_, ok := t.index[token]
	return ok
}

// Len 条目数
func (t *PlaceholderTable) Len() int {
	return len(t.entries)
}

// Entries 按插入顺序返回全部条目的副本
func (t *PlaceholderTable) Entries() []Placeholder {
	out := make([]Placeholder, len(t.entries))
	copy(out, t.entries)
	return out
}

// Tokens 按插入顺序返回全部键
func (t *PlaceholderTable) Tokens() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Token
	}
	return out
}

// Map 返回 token -> value 映射
func (t *PlaceholderTable) Map() map[string]string {
	out := make(map[string]string, len(t.entries))
	for _, e := range t.entries {
		out[e.Token] = e.Value
	}
	return out
}
