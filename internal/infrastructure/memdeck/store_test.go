package memdeck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchforge-ai-api/internal/domain/gateway"
	"pitchforge-ai-api/pkg/textrun"
)

func TestParseA1(t *testing.T) {
	ref, err := ParseA1("'[Chart] Market Size'!A1:B4")
	require.NoError(t, err)
	assert.Equal(t, A1Ref{Sheet: "[Chart] Market Size", Row: 0, Col: 0, Rows: 4, Cols: 2}, ref)

	ref, err = ParseA1("'It''s'!C2")
	require.NoError(t, err)
	assert.Equal(t, A1Ref{Sheet: "It's", Row: 1, Col: 2}, ref)

	ref, err = ParseA1("AA10:AB11")
	require.NoError(t, err)
	assert.Equal(t, 26, ref.Col)
	assert.Equal(t, 9, ref.Row)

	for _, bad := range []string{"", "Sheet!", "A0", "1A", "B4:A1"} {
		_, err := ParseA1(bad)
		assert.Error(t, err, bad)
	}
}

func TestCloneLeavesMasterUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewPitchStore()

	id, err := s.Clone(ctx, PitchMasterID, "copy")
	require.NoError(t, err)
	require.NotEqual(t, PitchMasterID, id)

	counts, err := s.ReplaceAllText(ctx, id, []gateway.Replacement{{Find: "{{COMPANY_NAME}}", Replace: "PawPal"}})
	require.NoError(t, err)
	assert.Equal(t, 2, counts["{{COMPANY_NAME}}"])

	master, ok := s.Presentation(PitchMasterID)
	require.True(t, ok)
	assert.Equal(t, "{{COMPANY_NAME}}", textrun.Text(master.Slides[0].Shapes[0].Runs))

	cp, _ := s.Presentation(id)
	assert.Equal(t, "PawPal", textrun.Text(cp.Slides[0].Shapes[0].Runs))
	assert.Equal(t, headingStyle, cp.Slides[0].Shapes[0].Runs[0].Style)
}

func TestRefreshSnapshotsCurrentData(t *testing.T) {
	ctx := context.Background()
	s := NewPitchStore()
	id, err := s.Clone(ctx, PitchMasterID, "copy")
	require.NoError(t, err)

	charts, err := s.LinkedCharts(ctx, id)
	require.NoError(t, err)
	require.Len(t, charts, 1)

	rows := [][]any{{"Metric", "Value"}, {"TAM", 1.0}, {"SAM", 0.5}, {"SOM", 0.05}}
	require.NoError(t, s.WriteRange(ctx, PitchChartSpreadsheetID, "'"+PitchChartSheet+"'!A1:B4", rows))
	require.NoError(t, s.RefreshCharts(ctx, id, charts))

	cp, _ := s.Presentation(id)
	var rendered [][]any
	for _, sl := range cp.Slides {
		for _, c := range sl.Charts {
			rendered = c.Rendered
		}
	}
	assert.Equal(t, rows, rendered)
	assert.Equal(t, []string{OpClone, OpLinkedCharts, OpWriteRange, OpRefresh}, s.Calls())
}

func TestWriteRangeRejectsOverflow(t *testing.T) {
	s := NewPitchStore()
	rows := [][]any{{"a", "b", "c"}}
	err := s.WriteRange(context.Background(), PitchChartSpreadsheetID, "'"+PitchChartSheet+"'!A1:B4", rows)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFailOn(t *testing.T) {
	s := NewPitchStore()
	boom := errors.New("quota exceeded")
	s.FailOn(OpClone, boom)

	_, err := s.Clone(context.Background(), PitchMasterID, "copy")
	assert.ErrorIs(t, err, boom)

	s.FailOn(OpClone, nil)
	_, err = s.Clone(context.Background(), PitchMasterID, "copy")
	assert.NoError(t, err)
}
