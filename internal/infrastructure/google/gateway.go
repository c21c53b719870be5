package google

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/slides/v1"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	"pitchforge-ai-api/pkg/retry"
)

var tracer = otel.Tracer("google")

// Gateway 以 Slides 承载演示文稿、Drive 负责复制导出删除、Sheets 承载图表数据
type Gateway struct {
	session *Session
	policy  retry.Policy
}

var (
	_ gateway.DocumentGateway    = (*Gateway)(nil)
	_ gateway.SpreadsheetGateway = (*Gateway)(nil)
)

// NewGateway 创建网关，policy 的瞬时错误判断会被替换为 Google API 的判断
func NewGateway(session *Session, policy retry.Policy) *Gateway {
	return &Gateway{
		session: session,
		policy:  policy.WithClassifier(IsTransient),
	}
}

func (g *Gateway) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "google."+name, trace.WithAttributes(attrs...))
}

// Clone 复制母版；复制不是幂等操作，只在请求被限流拒绝时重试
func (g *Gateway) Clone(ctx context.Context, masterID, title string) (string, error) {
	ctx, span := g.span(ctx, "Clone", attribute.String("master_id", masterID))
	defer span.End()

	policy := g.policy.OnlyWhen(IsRateLimited)
	file, err := retry.Do(ctx, policy, "drive.files.copy", func(ctx context.Context) (*drive.File, error) {
		return g.session.Drive.Files.Copy(masterID, &drive.File{Name: title}).
			SupportsAllDrives(true).
			Fields("id").
			Context(ctx).
			Do()
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to copy template %s: %w", masterID, err)
	}
	span.SetAttributes(attribute.String("document_id", file.Id))
	return file.Id, nil
}

// ReplaceAllText 一次 batchUpdate 提交全部替换；整批原子生效
func (g *Gateway) ReplaceAllText(ctx context.Context, documentID string, reps []gateway.Replacement) (map[string]int, error) {
	ctx, span := g.span(ctx, "ReplaceAllText",
		attribute.String("document_id", documentID),
		attribute.Int("replacements", len(reps)),
	)
	defer span.End()

	counts := make(map[string]int, len(reps))
	if len(reps) == 0 {
		return counts, nil
	}

	req := &slides.BatchUpdatePresentationRequest{Requests: replaceRequests(reps)}
	resp, err := retry.Do(ctx, g.policy, "slides.batch_update", func(ctx context.Context) (*slides.BatchUpdatePresentationResponse, error) {
		return g.session.Slides.Presentations.BatchUpdate(documentID, req).Context(ctx).Do()
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to replace text in %s: %w", documentID, err)
	}

	for i, r := range reps {
		n := 0
		if i < len(resp.Replies) && resp.Replies[i].ReplaceAllText != nil {
			n = int(resp.Replies[i].ReplaceAllText.OccurrencesChanged)
		}
		counts[r.Find] += n
	}
	return counts, nil
}

func replaceRequests(reps []gateway.Replacement) []*slides.Request {
	out := make([]*slides.Request, 0, len(reps))
	for _, r := range reps {
		out = append(out, &slides.Request{
			ReplaceAllText: &slides.ReplaceAllTextRequest{
				ContainsText: &slides.SubstringMatchCriteria{
					Text:      r.Find,
					MatchCase: true,
				},
				ReplaceText: r.Replace,
				// 空字符串同样需要发送，表示删除占位符
				ForceSendFields: []string{"ReplaceText"},
			},
		})
	}
	return out
}

func (g *Gateway) presentation(ctx context.Context, documentID string) (*slides.Presentation, error) {
	return retry.Do(ctx, g.policy, "slides.presentations.get", func(ctx context.Context) (*slides.Presentation, error) {
		return g.session.Slides.Presentations.Get(documentID).Context(ctx).Do()
	})
}

// TextFrames 读取所有幻灯片中形状与表格单元格的文本
func (g *Gateway) TextFrames(ctx context.Context, documentID string) ([]entity.TextFrame, error) {
	ctx, span := g.span(ctx, "TextFrames", attribute.String("document_id", documentID))
	defer span.End()

	p, err := g.presentation(ctx, documentID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read presentation %s: %w", documentID, err)
	}
	return textFrames(p), nil
}

// LinkedCharts 列出引用表格数据的图表
func (g *Gateway) LinkedCharts(ctx context.Context, documentID string) ([]entity.LinkedChart, error) {
	ctx, span := g.span(ctx, "LinkedCharts", attribute.String("document_id", documentID))
	defer span.End()

	p, err := g.presentation(ctx, documentID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read presentation %s: %w", documentID, err)
	}
	charts := linkedCharts(p)
	span.SetAttributes(attribute.Int("charts", len(charts)))
	return charts, nil
}

// RefreshCharts 一次 batchUpdate 刷新全部图表
func (g *Gateway) RefreshCharts(ctx context.Context, documentID string, charts []entity.LinkedChart) error {
	ctx, span := g.span(ctx, "RefreshCharts",
		attribute.String("document_id", documentID),
		attribute.Int("charts", len(charts)),
	)
	defer span.End()

	if len(charts) == 0 {
		return nil
	}
	reqs := make([]*slides.Request, 0, len(charts))
	for _, c := range charts {
		reqs = append(reqs, &slides.Request{
			RefreshSheetsChart: &slides.RefreshSheetsChartRequest{ObjectId: c.ObjectID},
		})
	}

	_, err := retry.Do(ctx, g.policy, "slides.refresh_charts", func(ctx context.Context) (*slides.BatchUpdatePresentationResponse, error) {
		return g.session.Slides.Presentations.BatchUpdate(documentID, &slides.BatchUpdatePresentationRequest{Requests: reqs}).
			Context(ctx).
			Do()
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to refresh charts in %s: %w", documentID, err)
	}
	return nil
}

// Export 通过 Drive 导出为指定格式
func (g *Gateway) Export(ctx context.Context, documentID, mimeType string) ([]byte, error) {
	ctx, span := g.span(ctx, "Export",
		attribute.String("document_id", documentID),
		attribute.String("mime_type", mimeType),
	)
	defer span.End()

	data, err := retry.Do(ctx, g.policy, "drive.files.export", func(ctx context.Context) ([]byte, error) {
		resp, err := g.session.Drive.Files.Export(documentID, mimeType).Context(ctx).Download()
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to export %s: %w", documentID, err)
	}
	span.SetAttributes(attribute.Int("size", len(data)))
	return data, nil
}

// Delete 删除副本
func (g *Gateway) Delete(ctx context.Context, documentID string) error {
	ctx, span := g.span(ctx, "Delete", attribute.String("document_id", documentID))
	defer span.End()

	_, err := retry.Do(ctx, g.policy, "drive.files.delete", func(ctx context.Context) (struct{}, error) {
		err := g.session.Drive.Files.Delete(documentID).SupportsAllDrives(true).Context(ctx).Do()
		if IsNotFound(err) {
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete %s: %w", documentID, err)
	}
	return nil
}

// SheetTitles 按顺序返回工作表标题
func (g *Gateway) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	ctx, span := g.span(ctx, "SheetTitles", attribute.String("spreadsheet_id", spreadsheetID))
	defer span.End()

	ss, err := retry.Do(ctx, g.policy, "sheets.spreadsheets.get", func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return g.session.Sheets.Spreadsheets.Get(spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", spreadsheetID, err)
	}

	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

// WriteRange 以 RAW 方式覆盖范围
func (g *Gateway) WriteRange(ctx context.Context, spreadsheetID, a1Range string, rows [][]any) error {
	ctx, span := g.span(ctx, "WriteRange",
		attribute.String("spreadsheet_id", spreadsheetID),
		attribute.String("range", a1Range),
	)
	defer span.End()

	_, err := retry.Do(ctx, g.policy, "sheets.values.update", func(ctx context.Context) (*sheets.UpdateValuesResponse, error) {
		return g.session.Sheets.Spreadsheets.Values.Update(spreadsheetID, a1Range, &sheets.ValueRange{Values: rows}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to write %s: %w", a1Range, err)
	}
	return nil
}

// walk 深度遍历幻灯片元素，包括分组内的子元素
func walk(p *slides.Presentation, fn func(el *slides.PageElement)) {
	var visit func(els []*slides.PageElement)
	visit = func(els []*slides.PageElement) {
		for _, el := range els {
			if el == nil {
				continue
			}
			fn(el)
			if el.ElementGroup != nil {
				visit(el.ElementGroup.Children)
			}
		}
	}
	for _, page := range p.Slides {
		visit(page.PageElements)
	}
}

func textFrames(p *slides.Presentation) []entity.TextFrame {
	var out []entity.TextFrame
	walk(p, func(el *slides.PageElement) {
		if el.Shape != nil && el.Shape.Text != nil {
			out = append(out, entity.TextFrame{ObjectID: el.ObjectId, Text: plainText(el.Shape.Text)})
		}
		if el.Table != nil {
			for r, row := range el.Table.TableRows {
				for c, cell := range row.TableCells {
					if cell.Text == nil {
						continue
					}
					out = append(out, entity.TextFrame{
						ObjectID: fmt.Sprintf("%s[%d,%d]", el.ObjectId, r, c),
						Text:     plainText(cell.Text),
					})
				}
			}
		}
	})
	return out
}

func plainText(t *slides.TextContent) string {
	var b strings.Builder
	for _, te := range t.TextElements {
		if te.TextRun != nil {
			b.WriteString(te.TextRun.Content)
		}
	}
	return b.String()
}

func linkedCharts(p *slides.Presentation) []entity.LinkedChart {
	var out []entity.LinkedChart
	walk(p, func(el *slides.PageElement) {
		if el.SheetsChart != nil {
			out = append(out, entity.LinkedChart{
				ObjectID:      el.ObjectId,
				SpreadsheetID: el.SheetsChart.SpreadsheetId,
				ChartID:       el.SheetsChart.ChartId,
			})
		}
	})
	return out
}
