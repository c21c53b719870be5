package chart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchforge-ai-api/internal/domain/entity"
	apperrors "pitchforge-ai-api/pkg/errors"
)

// recorder 记录调用顺序的假后端
type recorder struct {
	charts     []entity.LinkedChart
	titles     []string
	writeErr   error
	refreshErr error

	calls   []string
	written map[string][][]any
}

func (r *recorder) LinkedCharts(context.Context, string) ([]entity.LinkedChart, error) {
	r.calls = append(r.calls, "list")
	return r.charts, nil
}

func (r *recorder) RefreshCharts(_ context.Context, _ string, charts []entity.LinkedChart) error {
	r.calls = append(r.calls, "refresh")
	return r.refreshErr
}

func (r *recorder) SheetTitles(context.Context, string) ([]string, error) {
	r.calls = append(r.calls, "titles")
	return r.titles, nil
}

func (r *recorder) WriteRange(_ context.Context, id, a1 string, rows [][]any) error {
	r.calls = append(r.calls, "write")
	if r.writeErr != nil {
		return r.writeErr
	}
	if r.written == nil {
		r.written = map[string][][]any{}
	}
	r.written[id+"/"+a1] = rows
	return nil
}

var handle = &entity.TemplateHandle{DocumentID: "doc-1", MasterID: "master"}

func market() entity.MarketSize {
	m, _ := entity.NormalizeMarket(120, 30, 3)
	return m
}

func TestSyncWritesBeforeRefresh(t *testing.T) {
	rec := &recorder{
		charts: []entity.LinkedChart{{ObjectID: "c1", SpreadsheetID: "sheet-1", ChartID: 7}},
		titles: []string{"Inputs", "[Chart] Market", "[Chart] Other"},
	}
	s := NewSynchronizer(rec, rec, Config{})

	report, err := s.Sync(context.Background(), handle, market())
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"list", "titles", "write", "refresh"}, rec.calls); diff != "" {
		t.Fatalf("call order (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, report.ChartsRefreshed)
	assert.Equal(t, "sheet-1", report.SpreadsheetID)
	assert.Equal(t, "'[Chart] Market'!A1:B4", report.Range)

	rows := rec.written["sheet-1/'[Chart] Market'!A1:B4"]
	want := [][]any{
		{"Metric", "Value"},
		{"TAM", 120000.0},
		{"SAM", 30000.0},
		{"SOM", 3000.0},
	}
	assert.Equal(t, want, rows)
}

func TestSyncZeroChartsIsNoop(t *testing.T) {
	rec := &recorder{}
	s := NewSynchronizer(rec, rec, Config{})

	report, err := s.Sync(context.Background(), handle, market())
	require.NoError(t, err)
	assert.Zero(t, report.ChartsRefreshed)
	assert.False(t, report.Written)
	assert.Equal(t, []string{"list"}, rec.calls)
}

func TestSyncConfiguredSheetWithoutCharts(t *testing.T) {
	rec := &recorder{titles: []string{"Data"}}
	s := NewSynchronizer(rec, rec, Config{SpreadsheetID: "shared"})

	report, err := s.Sync(context.Background(), handle, market())
	require.NoError(t, err)
	assert.True(t, report.Written)
	assert.Zero(t, report.ChartsRefreshed)
	assert.Equal(t, "'Data'!A1:B4", report.Range)
	assert.NotContains(t, rec.calls, "refresh")
}

func TestSyncWriteFailureSkipsRefresh(t *testing.T) {
	rec := &recorder{
		charts:   []entity.LinkedChart{{ObjectID: "c1", SpreadsheetID: "sheet-1"}},
		titles:   []string{"[Chart]"},
		writeErr: errors.New("403 forbidden"),
	}
	s := NewSynchronizer(rec, rec, Config{})

	_, err := s.Sync(context.Background(), handle, market())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrChartSync)
	assert.NotContains(t, rec.calls, "refresh")
}

func TestSyncRefreshFailure(t *testing.T) {
	rec := &recorder{
		charts:     []entity.LinkedChart{{ObjectID: "c1", SpreadsheetID: "sheet-1"}},
		titles:     []string{"Sheet1"},
		refreshErr: errors.New("chart not found"),
	}
	s := NewSynchronizer(rec, rec, Config{SheetTitle: "Sheet1"})

	_, err := s.Sync(context.Background(), handle, market())
	require.Error(t, err)
	assert.Equal(t, apperrors.StageChartSync, apperrors.StageOf(err))
	assert.NotContains(t, rec.calls, "titles")
}

func TestSyncOnlyRefreshesChartsOfWrittenSpreadsheet(t *testing.T) {
	rec := &recorder{
		charts: []entity.LinkedChart{
			{ObjectID: "c1", SpreadsheetID: "other"},
			{ObjectID: "c2", SpreadsheetID: "sheet-1"},
		},
		titles: []string{"Sheet1"},
	}
	s := NewSynchronizer(rec, rec, Config{SpreadsheetID: "sheet-1"})

	report, err := s.Sync(context.Background(), handle, market())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ChartsRefreshed)
}

func TestSettleDelayIsCancellable(t *testing.T) {
	rec := &recorder{
		charts: []entity.LinkedChart{{ObjectID: "c1", SpreadsheetID: "sheet-1"}},
		titles: []string{"Sheet1"},
	}
	s := NewSynchronizer(rec, rec, Config{SettleDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	report, err := s.Sync(ctx, handle, market())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCanceled)
	assert.Less(t, time.Since(start), 5*time.Second)

	// 写入与刷新已完成，取消只发生在等待渲染期间
	require.NotNil(t, report)
	assert.True(t, report.Written)
	assert.Equal(t, 1, report.ChartsRefreshed)
	assert.Contains(t, rec.calls, "refresh")
	assert.Empty(t, apperrors.StageOf(err))
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'It''s'", QuoteSheet("It's"))
	assert.Equal(t, "'[Chart] Market'", QuoteSheet("[Chart] Market"))
}
