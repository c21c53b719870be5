package entity

import (
	"regexp"
	"strings"
)

// TemplateHandle 母版副本的引用，仅属于一次生成请求
type TemplateHandle struct {
	DocumentID string `json:"document_id"`
	MasterID   string `json:"master_id"`
	Title      string `json:"title"`
}

// LinkedChart 文档中引用表格数据的图表对象
type LinkedChart struct {
	ObjectID      string `json:"object_id"`
	SpreadsheetID string `json:"spreadsheet_id"`
	ChartID       int64  `json:"chart_id"`
}

// TextFrame 文档中一个承载文本的元素（形状、表格单元格等）的纯文本
type TextFrame struct {
	ObjectID string `json:"object_id"`
	Text     string `json:"text"`
}

// ExportArtifact 导出的二进制演示文稿，生成后不可变
type ExportArtifact struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

// Size 字节数
func (a *ExportArtifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// DeckFileName 生成 <company>_Pitch_Deck.<ext> 形式的安全文件名
func DeckFileName(company, ext string) string {
	name := unsafeFileChars.ReplaceAllString(strings.TrimSpace(company), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "Startup"
	}
	return name + "_Pitch_Deck." + strings.TrimPrefix(ext, ".")
}
