package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchforge-ai-api/internal/application/deck/chart"
	"pitchforge-ai-api/internal/application/deck/synth"
	"pitchforge-ai-api/internal/application/deck/template"
	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/infrastructure/memdeck"
	wfmodel "pitchforge-ai-api/internal/workflow/model"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/retry"
	"pitchforge-ai-api/pkg/textrun"
)

type scriptedChain struct {
	replies []string
	calls   int
}

func (c *scriptedChain) Invoke(_ context.Context, _ *wfmodel.DeckContentInput) (*schema.Message, error) {
	i := c.calls
	c.calls++
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return &schema.Message{Role: schema.Assistant, Content: c.replies[i]}, nil
}

func dogWalkingReply(t *testing.T) string {
	t.Helper()
	data := map[string]any{}
	for _, k := range wfmodel.DeckContentKeys() {
		data[k] = "Generated " + k
	}
	data[entity.TokenCompanyName] = "PawPal"
	data["PROBLEM_1"] = "Busy owners cannot walk dogs at midday"
	data[wfmodel.MarketDataKey] = map[string]any{"TAM": 45.5, "SAM": 12, "SOM": 0.8}
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return string(raw)
}

func newSynth(t *testing.T, chain synth.ContentChain) *synth.Synthesizer {
	t.Helper()
	s, err := synth.New(chain, synth.Config{
		MaxAttempts: 2,
		Retry:       retry.Policy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})
	require.NoError(t, err)
	return s
}

func newPipeline(content ContentSynthesizer, store *memdeck.Store) *Pipeline {
	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)
	sync := chart.NewSynchronizer(store, store, chart.Config{})
	return NewPipeline(content, inst, sync, store, MimePPTX)
}

var dogWalking = entity.DeckRequest{
	Idea:        "Uber for dog walking",
	Customer:    "Busy pet owners",
	Region:      "North America",
	Constraints: "Focus on safety",
}

func TestPipelineDogWalkingScenario(t *testing.T) {
	store := memdeck.NewPitchStore()
	chain := &scriptedChain{replies: []string{dogWalkingReply(t)}}
	p := newPipeline(newSynth(t, chain), store)

	res, err := p.Run(context.Background(), dogWalking)
	require.NoError(t, err)

	c := res.Content
	assert.Len(t, c.Problems, 4)
	assert.Len(t, c.Insights, 3)
	assert.Len(t, c.Solutions, 4)
	assert.True(t, c.Market.Ordered())
	assert.Equal(t, "$45.5B", c.Market.TAM.Display)
	assert.Equal(t, "$800M", c.Market.SOM.Display)

	require.NotNil(t, res.Artifact)
	assert.NotEmpty(t, res.Artifact.Data)
	assert.Equal(t, "PawPal_Pitch_Deck.pptx", res.Artifact.FileName)
	assert.Equal(t, MimePPTX, res.Artifact.MimeType)

	assert.Empty(t, res.Summary.UnresolvedTokens)
	assert.Equal(t, 40, res.Summary.PlaceholdersResolved)
	assert.Equal(t, 1, res.Summary.ChartsRefreshed)
	assert.Len(t, res.Summary.Stages, 6)

	want := []string{
		memdeck.OpClone,
		memdeck.OpReplace,
		memdeck.OpTextFrames,
		memdeck.OpLinkedCharts,
		memdeck.OpSheetTitles,
		memdeck.OpWriteRange,
		memdeck.OpRefresh,
		memdeck.OpExport,
	}
	if diff := cmp.Diff(want, store.Calls()); diff != "" {
		t.Fatalf("backend call order (-want +got):\n%s", diff)
	}

	sheet, ok := store.Spreadsheet(memdeck.PitchChartSpreadsheetID)
	require.True(t, ok)
	assert.Equal(t, []any{"TAM", 45500.0}, sheet.Tabs[1].Values[1])
	assert.Equal(t, []any{"SOM", 800.0}, sheet.Tabs[1].Values[3])

	// 导出内容中的图表快照来自刷新后的数据
	var exported struct {
		Presentation memdeck.Presentation `json:"presentation"`
	}
	require.NoError(t, json.Unmarshal(res.Artifact.Data, &exported))
	var rendered [][]any
	for _, sl := range exported.Presentation.Slides {
		for _, ch := range sl.Charts {
			rendered = ch.Rendered
		}
	}
	require.Len(t, rendered, 4)
	assert.Equal(t, "SAM", rendered[2][0])
	assert.InDelta(t, 12000.0, rendered[2][1], 1e-9)
}

func TestPipelineMalformedContentClonesNothing(t *testing.T) {
	store := memdeck.NewPitchStore()
	chain := &scriptedChain{replies: []string{"sorry, no JSON today"}}
	p := newPipeline(newSynth(t, chain), store)

	res, err := p.Run(context.Background(), dogWalking)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrContentGeneration)
	assert.Equal(t, apperrors.StageContent, res.Summary.FailedStage)
	assert.Equal(t, 2, chain.calls)
	assert.Nil(t, res.Artifact)
	assert.Empty(t, store.Calls())
}

func TestPipelineZeroLinkedCharts(t *testing.T) {
	store := memdeck.NewStore()
	store.PutPresentation(&memdeck.Presentation{
		ID: memdeck.PitchMasterID,
		Slides: []*memdeck.Slide{{
			ObjectID: "s1",
			Shapes: []*memdeck.Shape{{ObjectID: "t", Runs: []textrun.Run{
				{Text: "{{COMPANY", Style: textrun.Style{Bold: true}},
				{Text: "_NAME}} - {{TAGLINE}}"},
			}}},
		}},
	})
	chain := &scriptedChain{replies: []string{dogWalkingReply(t)}}
	p := newPipeline(newSynth(t, chain), store)

	res, err := p.Run(context.Background(), dogWalking)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.ChartsRefreshed)
	assert.Equal(t, 2, res.Summary.PlaceholdersResolved)
	assert.NotContains(t, store.Calls(), memdeck.OpWriteRange)
	assert.NotContains(t, store.Calls(), memdeck.OpRefresh)
	require.NotNil(t, res.Artifact)
}

// cancelingSynth 返回内容后取消请求
type cancelingSynth struct {
	cancel context.CancelFunc
}

func (s *cancelingSynth) Synthesize(_ context.Context, _ entity.DeckRequest) (*synth.Result, error) {
	c, _ := synth.Repair(map[string]any{entity.TokenCompanyName: "Acme"})
	s.cancel()
	return &synth.Result{Content: c, Attempts: 1}, nil
}

func TestPipelineCancelledBetweenStages(t *testing.T) {
	store := memdeck.NewPitchStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(&cancelingSynth{cancel: cancel}, store)

	res, err := p.Run(ctx, dogWalking)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.Calls())
	assert.Nil(t, res.Handle)
}

func TestPipelineSurfacesFirstFailingStage(t *testing.T) {
	tests := []struct {
		op        string
		want      error
		stage     apperrors.Stage
		lastCalls string
	}{
		{op: memdeck.OpClone, want: apperrors.ErrClone, stage: apperrors.StageClone, lastCalls: memdeck.OpClone},
		{op: memdeck.OpReplace, want: apperrors.ErrSubstitution, stage: apperrors.StageSubstitution, lastCalls: memdeck.OpReplace},
		{op: memdeck.OpWriteRange, want: apperrors.ErrChartSync, stage: apperrors.StageChartSync, lastCalls: memdeck.OpWriteRange},
		{op: memdeck.OpRefresh, want: apperrors.ErrChartSync, stage: apperrors.StageChartSync, lastCalls: memdeck.OpRefresh},
		{op: memdeck.OpExport, want: apperrors.ErrExport, stage: apperrors.StageExport, lastCalls: memdeck.OpExport},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			store := memdeck.NewPitchStore()
			store.FailOn(tt.op, fmt.Errorf("backend rejected %s", tt.op))
			chain := &scriptedChain{replies: []string{dogWalkingReply(t)}}
			p := newPipeline(newSynth(t, chain), store)

			res, err := p.Run(context.Background(), dogWalking)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.stage, res.Summary.FailedStage)
			assert.Nil(t, res.Artifact)

			calls := store.Calls()
			assert.Equal(t, tt.lastCalls, calls[len(calls)-1])

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Err.Error(), "backend rejected")
		})
	}
}

func TestPreviewTouchesNoDocument(t *testing.T) {
	store := memdeck.NewPitchStore()
	chain := &scriptedChain{replies: []string{dogWalkingReply(t)}}
	p := newPipeline(newSynth(t, chain), store)

	res, err := p.Preview(context.Background(), dogWalking)
	require.NoError(t, err)
	assert.Equal(t, 39, res.Placeholders.Len())
	assert.Empty(t, store.Calls())
}
