// Package chart 把市场规模写入图表数据表并刷新文档中的关联图表
package chart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/logger"
)

// 默认的数据页前缀与范围
const (
	DefaultSheetPrefix = "[Chart"
	DefaultRange       = "A1:B4"
)

// Config 图表同步配置
type Config struct {
	// SpreadsheetID 为空时取第一个关联图表的数据表
	SpreadsheetID string
	// SheetTitle 指定数据页；为空时按 SheetPrefix 匹配，再退回第一个工作表
	SheetTitle  string
	SheetPrefix string
	Range       string
	// SettleDelay 刷新后等待后端完成重新渲染的时间
	SettleDelay time.Duration
}

// Report 同步结果
type Report struct {
	SpreadsheetID   string `json:"spreadsheet_id,omitempty"`
	Range           string `json:"range,omitempty"`
	Written         bool   `json:"written"`
	ChartsRefreshed int    `json:"charts_refreshed"`
}

// Synchronizer 图表数据同步器。
// 数据表是共享资源，不对并发请求加锁，同一范围的并发写入可能交错。
type Synchronizer struct {
	docs   gateway.ChartHost
	sheets gateway.SpreadsheetGateway
	cfg    Config
}

// NewSynchronizer 创建同步器
func NewSynchronizer(docs gateway.ChartHost, sheets gateway.SpreadsheetGateway, cfg Config) *Synchronizer {
	if cfg.SheetPrefix == "" {
		cfg.SheetPrefix = DefaultSheetPrefix
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	return &Synchronizer{docs: docs, sheets: sheets, cfg: cfg}
}

// Sync 依次执行：发现关联图表 -> 写入数据 -> 强制刷新 -> 等待渲染完成。
// 文档中没有关联图表且未配置数据表时整个阶段为空操作。
func (s *Synchronizer) Sync(ctx context.Context, h *entity.TemplateHandle, market entity.MarketSize) (*Report, error) {
	if h == nil || h.DocumentID == "" {
		return nil, chartErr(nil, "no template handle")
	}

	charts, err := s.docs.LinkedCharts(ctx, h.DocumentID)
	if err != nil {
		return nil, chartErr(err, "list linked charts")
	}

	spreadsheetID := s.cfg.SpreadsheetID
	if spreadsheetID == "" && len(charts) > 0 {
		spreadsheetID = charts[0].SpreadsheetID
	}
	report := &Report{SpreadsheetID: spreadsheetID}
	if spreadsheetID == "" {
		logger.Debug(ctx, "no linked charts and no chart spreadsheet configured, skipping chart sync",
			"document_id", h.DocumentID)
		return report, nil
	}

	a1, err := s.WriteSeries(ctx, spreadsheetID, entity.MarketSeries(market))
	if err != nil {
		return report, err
	}
	report.Range = a1
	report.Written = true

	linked := make([]entity.LinkedChart, 0, len(charts))
	for _, c := range charts {
		if c.SpreadsheetID == spreadsheetID {
			linked = append(linked, c)
		}
	}
	n, err := s.ForceRefresh(ctx, h, linked)
	report.ChartsRefreshed = n
	return report, err
}

// WriteSeries 以原始值覆盖数据页的固定范围，返回实际写入的 A1 范围
func (s *Synchronizer) WriteSeries(ctx context.Context, spreadsheetID string, series entity.ChartSeries) (string, error) {
	tab := s.cfg.SheetTitle
	if tab == "" {
		titles, err := s.sheets.SheetTitles(ctx, spreadsheetID)
		if err != nil {
			return "", chartErr(err, "read sheet titles")
		}
		if tab = pickSheet(titles, s.cfg.SheetPrefix); tab == "" {
			return "", chartErr(nil, fmt.Sprintf("spreadsheet %s has no sheets", spreadsheetID))
		}
	}

	a1 := QuoteSheet(tab) + "!" + s.cfg.Range
	if err := s.sheets.WriteRange(ctx, spreadsheetID, a1, series.Rows); err != nil {
		return "", chartErr(err, "write "+a1)
	}
	logger.Debug(ctx, "chart series written", "spreadsheet_id", spreadsheetID, "range", a1)
	return a1, nil
}

// ForceRefresh 让关联图表按最新数据重新渲染，并等待渲染完成。
// 没有关联图表时返回 0，不视为错误。
// 等待期间被取消时返回 CodeCanceled 和已刷新的图表数：此时写入与刷新都已完成，
// 失败阶段记为 canceled 而不是 chart_sync。
func (s *Synchronizer) ForceRefresh(ctx context.Context, h *entity.TemplateHandle, charts []entity.LinkedChart) (int, error) {
	if len(charts) == 0 {
		logger.Debug(ctx, "no linked charts to refresh", "document_id", h.DocumentID)
		return 0, nil
	}
	if err := s.docs.RefreshCharts(ctx, h.DocumentID, charts); err != nil {
		return 0, chartErr(err, fmt.Sprintf("refresh %d chart(s)", len(charts)))
	}
	if err := settle(ctx, s.cfg.SettleDelay); err != nil {
		return len(charts), apperrors.Wrap(err, apperrors.CodeCanceled, "pipeline canceled").
			WithDetail("canceled while waiting for charts to render")
	}
	return len(charts), nil
}

// pickSheet 取第一个标题以 prefix 开头的工作表，否则取第一个
func pickSheet(titles []string, prefix string) string {
	if len(titles) == 0 {
		return ""
	}
	for _, t := range titles {
		if strings.HasPrefix(t, prefix) {
			return t
		}
	}
	return titles[0]
}

// QuoteSheet 生成 A1 记法中的工作表名
func QuoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func chartErr(err error, detail string) *apperrors.AppError {
	if err == nil {
		return apperrors.New(apperrors.CodeChartSyncFailed, "chart sync failed").WithDetail(detail)
	}
	return apperrors.Wrap(err, apperrors.CodeChartSyncFailed, "chart sync failed").WithDetail(detail)
}
