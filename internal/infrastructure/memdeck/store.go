// Package memdeck 内存中的演示文稿与表格后端，文本以样式片段存储，
// 用于本地开发、命令行试跑与测试。
package memdeck

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	"pitchforge-ai-api/pkg/textrun"
)

// 操作名，用于调用记录与故障注入
const (
	OpClone        = "clone"
	OpReplace      = "replace_all_text"
	OpTextFrames   = "text_frames"
	OpLinkedCharts = "linked_charts"
	OpRefresh      = "refresh_charts"
	OpExport       = "export"
	OpDelete       = "delete"
	OpSheetTitles  = "sheet_titles"
	OpWriteRange   = "write_range"
)

// Shape 一个文本框
type Shape struct {
	ObjectID string        `json:"object_id"`
	Runs     []textrun.Run `json:"runs"`
}

// Chart 一个关联图表，Rendered 为最近一次刷新时的数据快照
type Chart struct {
	entity.LinkedChart
	// SourceSheet 数据所在工作表，为空时取第一个
	SourceSheet string  `json:"source_sheet,omitempty"`
	Rendered    [][]any `json:"rendered,omitempty"`
}

// Slide 一页幻灯片
type Slide struct {
	ObjectID string   `json:"object_id"`
	Shapes   []*Shape `json:"shapes"`
	Charts   []*Chart `json:"charts,omitempty"`
}

// Presentation 一份演示文稿
type Presentation struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Slides []*Slide `json:"slides"`
}

// Tab 工作表，Values 从 A1 开始
type Tab struct {
	Title  string  `json:"title"`
	Values [][]any `json:"values"`
}

// Spreadsheet 表格
type Spreadsheet struct {
	ID   string `json:"id"`
	Tabs []*Tab `json:"tabs"`
}

// Store 内存后端，并发安全
type Store struct {
	mu     sync.Mutex
	docs   map[string]*Presentation
	sheets map[string]*Spreadsheet
	calls  []string
	faults map[string]error
}

var (
	_ gateway.DocumentGateway    = (*Store)(nil)
	_ gateway.SpreadsheetGateway = (*Store)(nil)
)

// NewStore 创建空后端
func NewStore() *Store {
	return &Store{
		docs:   make(map[string]*Presentation),
		sheets: make(map[string]*Spreadsheet),
		faults: make(map[string]error),
	}
}

// PutPresentation 写入一份文档
func (s *Store) PutPresentation(p *Presentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[p.ID] = clonePresentation(p)
}

// PutSpreadsheet 写入一份表格
func (s *Store) PutSpreadsheet(sp *Spreadsheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sp.ID] = cloneSpreadsheet(sp)
}

// Presentation 返回文档副本
func (s *Store) Presentation(id string) (*Presentation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return clonePresentation(p), true
}

// Spreadsheet 返回表格副本
func (s *Store) Spreadsheet(id string) (*Spreadsheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sheets[id]
	if !ok {
		return nil, false
	}
	return cloneSpreadsheet(sp), true
}

// Calls 按顺序返回已执行的操作名
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// FailOn 让后续的 op 调用返回 err；err 为 nil 时清除
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// begin 记录调用并检查故障注入，调用方需持有锁
func (s *Store) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.calls = append(s.calls, op)
	return s.faults[op]
}

func (s *Store) doc(id string) (*Presentation, error) {
	p, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: presentation %s", ErrNotFound, id)
	}
	return p, nil
}

// Clone 复制文档
func (s *Store) Clone(ctx context.Context, masterID, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpClone); err != nil {
		return "", err
	}
	master, err := s.doc(masterID)
	if err != nil {
		return "", err
	}
	cp := clonePresentation(master)
	cp.ID = uuid.NewString()
	cp.Title = title
	s.docs[cp.ID] = cp
	return cp.ID, nil
}

// ReplaceAllText 在所有文本框上执行整串替换，单个调用内的替换按顺序生效
func (s *Store) ReplaceAllText(ctx context.Context, documentID string, reps []gateway.Replacement) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpReplace); err != nil {
		return nil, err
	}
	p, err := s.doc(documentID)
	if err != nil {
		return nil, err
	}

	// 先在副本上执行，全部成功后再提交
	work := clonePresentation(p)
	counts := make(map[string]int, len(reps))
	for _, r := range reps {
		if r.Find == "" {
			return nil, fmt.Errorf("%w: empty find text", ErrInvalidRequest)
		}
		n := 0
		for _, slide := range work.Slides {
			for _, shape := range slide.Shapes {
				var k int
				shape.Runs, k = textrun.ReplaceAll(shape.Runs, r.Find, r.Replace)
				n += k
			}
		}
		counts[r.Find] += n
	}
	s.docs[documentID] = work
	return counts, nil
}

// TextFrames 返回所有文本框的纯文本
func (s *Store) TextFrames(ctx context.Context, documentID string) ([]entity.TextFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpTextFrames); err != nil {
		return nil, err
	}
	p, err := s.doc(documentID)
	if err != nil {
		return nil, err
	}
	var frames []entity.TextFrame
	for _, slide := range p.Slides {
		for _, shape := range slide.Shapes {
			frames = append(frames, entity.TextFrame{ObjectID: shape.ObjectID, Text: textrun.Text(shape.Runs)})
		}
	}
	return frames, nil
}

// LinkedCharts 返回文档中的关联图表
func (s *Store) LinkedCharts(ctx context.Context, documentID string) ([]entity.LinkedChart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpLinkedCharts); err != nil {
		return nil, err
	}
	p, err := s.doc(documentID)
	if err != nil {
		return nil, err
	}
	var charts []entity.LinkedChart
	for _, slide := range p.Slides {
		for _, c := range slide.Charts {
			charts = append(charts, c.LinkedChart)
		}
	}
	return charts, nil
}

// RefreshCharts 以数据表的当前值重新渲染图表
func (s *Store) RefreshCharts(ctx context.Context, documentID string, charts []entity.LinkedChart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpRefresh); err != nil {
		return err
	}
	p, err := s.doc(documentID)
	if err != nil {
		return err
	}
	want := make(map[string]struct{}, len(charts))
	for _, c := range charts {
		want[c.ObjectID] = struct{}{}
	}
	for _, slide := range p.Slides {
		for _, c := range slide.Charts {
			if _, ok := want[c.ObjectID]; !ok {
				continue
			}
			delete(want, c.ObjectID)
			sp, ok := s.sheets[c.SpreadsheetID]
			if !ok || len(sp.Tabs) == 0 {
				return fmt.Errorf("%w: chart %s source spreadsheet %s", ErrNotFound, c.ObjectID, c.SpreadsheetID)
			}
			src := sp.Tabs[0]
			for _, t := range sp.Tabs {
				if t.Title == c.SourceSheet {
					src = t
					break
				}
			}
			c.Rendered = cloneGrid(src.Values)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for id := range want {
			missing = append(missing, id)
		}
		sort.Strings(missing)
		return fmt.Errorf("%w: charts %s", ErrNotFound, strings.Join(missing, ","))
	}
	return nil
}

// Export 导出为 JSON 快照；mimeType 仅记录在结果中
func (s *Store) Export(ctx context.Context, documentID, mimeType string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpExport); err != nil {
		return nil, err
	}
	p, err := s.doc(documentID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(struct {
		MimeType     string        `json:"mime_type"`
		Presentation *Presentation `json:"presentation"`
	}{MimeType: mimeType, Presentation: p}, "", "  ")
}

// Delete 删除文档
func (s *Store) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDelete); err != nil {
		return err
	}
	if _, err := s.doc(documentID); err != nil {
		return err
	}
	delete(s.docs, documentID)
	return nil
}

// SheetTitles 返回工作表标题
func (s *Store) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpSheetTitles); err != nil {
		return nil, err
	}
	sp, ok := s.sheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("%w: spreadsheet %s", ErrNotFound, spreadsheetID)
	}
	titles := make([]string, len(sp.Tabs))
	for i, t := range sp.Tabs {
		titles[i] = t.Title
	}
	return titles, nil
}

// WriteRange 覆盖写入 A1 范围
func (s *Store) WriteRange(ctx context.Context, spreadsheetID, a1Range string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpWriteRange); err != nil {
		return err
	}
	sp, ok := s.sheets[spreadsheetID]
	if !ok {
		return fmt.Errorf("%w: spreadsheet %s", ErrNotFound, spreadsheetID)
	}
	ref, err := ParseA1(a1Range)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	var tab *Tab
	for _, t := range sp.Tabs {
		if ref.Sheet == "" || t.Title == ref.Sheet {
			tab = t
			break
		}
	}
	if tab == nil {
		return fmt.Errorf("%w: sheet %q", ErrNotFound, ref.Sheet)
	}
	if ref.Rows > 0 && len(rows) > ref.Rows {
		return fmt.Errorf("%w: %d rows exceed range %s", ErrInvalidRequest, len(rows), a1Range)
	}
	for i, row := range rows {
		if ref.Cols > 0 && len(row) > ref.Cols {
			return fmt.Errorf("%w: %d columns exceed range %s", ErrInvalidRequest, len(row), a1Range)
		}
		for j, v := range row {
			tab.Values = setCell(tab.Values, ref.Row+i, ref.Col+j, v)
		}
	}
	return nil
}

func setCell(grid [][]any, r, c int, v any) [][]any {
	for len(grid) <= r {
		grid = append(grid, nil)
	}
	for len(grid[r]) <= c {
		grid[r] = append(grid[r], nil)
	}
	grid[r][c] = v
	return grid
}

func clonePresentation(p *Presentation) *Presentation {
	cp := &Presentation{ID: p.ID, Title: p.Title, Slides: make([]*Slide, len(p.Slides))}
	for i, sl := range p.Slides {
		ns := &Slide{ObjectID: sl.ObjectID}
		for _, sh := range sl.Shapes {
			runs := make([]textrun.Run, len(sh.Runs))
			copy(runs, sh.Runs)
			ns.Shapes = append(ns.Shapes, &Shape{ObjectID: sh.ObjectID, Runs: runs})
		}
		for _, c := range sl.Charts {
			ns.Charts = append(ns.Charts, &Chart{LinkedChart: c.LinkedChart, SourceSheet: c.SourceSheet, Rendered: cloneGrid(c.Rendered)})
		}
		cp.Slides[i] = ns
	}
	return cp
}

func cloneSpreadsheet(sp *Spreadsheet) *Spreadsheet {
	cp := &Spreadsheet{ID: sp.ID, Tabs: make([]*Tab, len(sp.Tabs))}
	for i, t := range sp.Tabs {
		cp.Tabs[i] = &Tab{Title: t.Title, Values: cloneGrid(t.Values)}
	}
	return cp
}

func cloneGrid(g [][]any) [][]any {
	if g == nil {
		return nil
	}
	out := make([][]any, len(g))
	for i, row := range g {
		out[i] = append([]any(nil), row...)
	}
	return out
}
