package template_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchforge-ai-api/internal/application/deck/placeholder"
	"pitchforge-ai-api/internal/application/deck/template"
	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/gateway"
	"pitchforge-ai-api/internal/infrastructure/memdeck"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/textrun"
)

func sampleTable() *entity.PlaceholderTable {
	c := &entity.ContentModel{
		CompanyName:     "PawPal",
		Tagline:         "Walks on demand",
		Subtitle:        "Trusted walkers",
		VisionStatement: "Every dog walked",
	}
	for _, f := range entity.ListFields {
		items := make([]string, f.Count)
		for i := range items {
			items[i] = fmt.Sprintf("%s text %d", strings.ToLower(f.Prefix), i+1)
		}
		f.Set(c, items)
	}
	c.Market, _ = entity.NormalizeMarket(120, 30, 3)
	return placeholder.Map(c)
}

func documentText(t *testing.T, s *memdeck.Store, id string) string {
	t.Helper()
	p, ok := s.Presentation(id)
	require.True(t, ok)
	var b strings.Builder
	for _, sl := range p.Slides {
		for _, sh := range sl.Shapes {
			b.WriteString(textrun.Text(sh.Runs))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func TestInstantiateAndSubstitute(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)

	h, err := inst.Instantiate(ctx, "PawPal Pitch Deck")
	require.NoError(t, err)
	assert.Equal(t, memdeck.PitchMasterID, h.MasterID)

	report, err := inst.Substitute(ctx, h, sampleTable())
	require.NoError(t, err)
	assert.True(t, report.Clean())
	// COMPANY_NAME 在母版中出现两次
	assert.Equal(t, placeholder.Count()+1, report.Resolved)
	assert.Equal(t, 2, report.PerToken[entity.TokenCompanyName])
	assert.Empty(t, report.Unused)

	text := documentText(t, store, h.DocumentID)
	assert.NotContains(t, text, "{{")
	assert.NotContains(t, text, "}}")
	assert.Contains(t, text, "2. problem text 2")
	assert.Contains(t, text, "TAM: $120B")

	master := documentText(t, store, memdeck.PitchMasterID)
	assert.Contains(t, master, "{{PROBLEM_2}}")
}

func TestSubstitutePreservesSurroundingFormatting(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)
	h, err := inst.Instantiate(ctx, "copy")
	require.NoError(t, err)

	before, _ := store.Presentation(h.DocumentID)
	_, err = inst.Substitute(ctx, h, sampleTable())
	require.NoError(t, err)
	after, _ := store.Presentation(h.DocumentID)

	// "Subtitle: " 前缀片段保持原样式
	prefixBefore := before.Slides[0].Shapes[2].Runs[0]
	prefixAfter := after.Slides[0].Shapes[2].Runs[0]
	assert.Equal(t, prefixBefore, prefixAfter)

	// 编号片段保持原样式，替换文本继承占位符起点片段的样式
	problem2Before := before.Slides[1].Shapes[2].Runs
	problem2After := after.Slides[1].Shapes[2].Runs
	assert.Equal(t, problem2Before[0], problem2After[0])
	require.Len(t, problem2After, 2)
	assert.Equal(t, "problem text 2", problem2After[1].Text)
	assert.Equal(t, problem2Before[1].Style, problem2After[1].Style)
}

func TestSubstituteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)
	h, err := inst.Instantiate(ctx, "copy")
	require.NoError(t, err)
	table := sampleTable()

	_, err = inst.Substitute(ctx, h, table)
	require.NoError(t, err)
	once := documentText(t, store, h.DocumentID)

	report, err := inst.Substitute(ctx, h, table)
	require.NoError(t, err)
	assert.Zero(t, report.Resolved)
	assert.Equal(t, once, documentText(t, store, h.DocumentID))
}

func TestSubstituteDefusesDelimitersInValues(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)
	h, err := inst.Instantiate(ctx, "copy")
	require.NoError(t, err)

	table := entity.NewPlaceholderTable(placeholder.Count())
	for _, e := range sampleTable().Entries() {
		v := e.Value
		if e.Token == entity.TokenTagline {
			v = "{{RISK_1}} is {{not}} a token"
		}
		require.NoError(t, table.Add(e.Token, v))
	}

	_, err = inst.Substitute(ctx, h, table)
	require.NoError(t, err)
	assert.Contains(t, documentText(t, store, h.DocumentID), "RISK_1 is not a token")
}

func TestSubstituteLeavesUnknownTokenUntouched(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	master, ok := store.Presentation(memdeck.PitchMasterID)
	require.True(t, ok)
	master.Slides[0].Shapes = append(master.Slides[0].Shapes, &memdeck.Shape{
		ObjectID: "title_logo",
		Runs:     []textrun.Run{{Text: "Logo: {{LOGO}}"}},
	})
	store.PutPresentation(master)

	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)
	h, err := inst.Instantiate(ctx, "copy")
	require.NoError(t, err)

	report, err := inst.Substitute(ctx, h, sampleTable())
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, []string{"LOGO"}, report.Unknown)
	assert.Empty(t, report.Unresolved)
	assert.Equal(t, placeholder.Count()+1, report.Resolved)

	text := documentText(t, store, h.DocumentID)
	assert.Contains(t, text, "Logo: {{LOGO}}")
	assert.Contains(t, text, "PawPal")
}

func TestSubstituteMissingEntryIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)
	h, err := inst.Instantiate(ctx, "copy")
	require.NoError(t, err)

	table := entity.NewPlaceholderTable(placeholder.Count())
	for _, e := range sampleTable().Entries() {
		if e.Token == "GTM_3" {
			continue
		}
		require.NoError(t, table.Add(e.Token, e.Value))
	}

	report, err := inst.Substitute(ctx, h, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"GTM_3"}, report.Unknown)
	assert.Empty(t, report.Unresolved)
	assert.Contains(t, documentText(t, store, h.DocumentID), "{{GTM_3}}")
}

// skippingEditor 模拟后端静默跳过部分替换
type skippingEditor struct {
	*memdeck.Store
	skip string
}

func (e *skippingEditor) ReplaceAllText(ctx context.Context, id string, reps []gateway.Replacement) (map[string]int, error) {
	kept := reps[:0:0]
	for _, r := range reps {
		if r.Find != e.skip {
			kept = append(kept, r)
		}
	}
	return e.Store.ReplaceAllText(ctx, id, kept)
}

func TestSubstituteFailsClosedOnSkippedToken(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	docs := &skippingEditor{Store: store, skip: "{{SOLUTION_2}}"}
	inst := template.NewInstantiator(docs, memdeck.PitchMasterID, textrun.DefaultDelimiters)
	h, err := inst.Instantiate(ctx, "copy")
	require.NoError(t, err)

	report, err := inst.Substitute(ctx, h, sampleTable())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSubstitution)
	assert.Equal(t, []string{"SOLUTION_2"}, report.Unresolved)
	assert.Contains(t, report.Unused, "SOLUTION_2")
}

func TestInstantiateWrapsCloneFailure(t *testing.T) {
	store := memdeck.NewPitchStore()
	store.FailOn(memdeck.OpClone, errors.New("403 insufficient permissions"))
	inst := template.NewInstantiator(store, memdeck.PitchMasterID, textrun.DefaultDelimiters)

	_, err := inst.Instantiate(context.Background(), "copy")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrClone)
	assert.Equal(t, apperrors.StageClone, apperrors.StageOf(err))
}

func TestInstantiateMissingMaster(t *testing.T) {
	inst := template.NewInstantiator(memdeck.NewStore(), "does-not-exist", textrun.DefaultDelimiters)
	_, err := inst.Instantiate(context.Background(), "copy")
	assert.ErrorIs(t, err, apperrors.ErrClone)
	assert.ErrorIs(t, err, memdeck.ErrNotFound)
}
