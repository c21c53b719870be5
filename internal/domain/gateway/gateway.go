// Package gateway 定义演示文稿与表格后端的边界契约
package gateway

import (
	"context"

	"pitchforge-ai-api/internal/domain/entity"
)

// Replacement 一条整串查找替换
type Replacement struct {
	Find    string
	Replace string
}

// TemplateCloner 复制母版
type TemplateCloner interface {
	// Clone 复制母版文档，返回副本 ID；母版不被修改
	Clone(ctx context.Context, masterID, title string) (string, error)
}

// TextEditor 文档文本读写
type TextEditor interface {
	// ReplaceAllText 以一次批量请求执行全部替换（区分大小写），返回每个 Find 的替换次数。
	// 匹配基于元素的完整文本，与样式片段如何切分无关。
	ReplaceAllText(ctx context.Context, documentID string, reps []Replacement) (map[string]int, error)
	// TextFrames 返回文档中所有承载文本元素的纯文本
	TextFrames(ctx context.Context, documentID string) ([]entity.TextFrame, error)
}

// ChartHost 文档中的关联图表
type ChartHost interface {
	LinkedCharts(ctx context.Context, documentID string) ([]entity.LinkedChart, error)
	// RefreshCharts 让关联图表按表格当前数据重新渲染
	RefreshCharts(ctx context.Context, documentID string, charts []entity.LinkedChart) error
}

// Exporter 文档导出
type Exporter interface {
	Export(ctx context.Context, documentID, mimeType string) ([]byte, error)
}

// DocumentRemover 删除副本
type DocumentRemover interface {
	Delete(ctx context.Context, documentID string) error
}

// DocumentGateway 演示文稿后端
type DocumentGateway interface {
	TemplateCloner
	TextEditor
	ChartHost
	Exporter
	DocumentRemover
}

// SpreadsheetGateway 图表数据所在的表格后端
type SpreadsheetGateway interface {
	// SheetTitles 按顺序返回工作表标题
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	// WriteRange 以原始值覆盖 A1 范围
	WriteRange(ctx context.Context, spreadsheetID, a1Range string, rows [][]any) error
}
