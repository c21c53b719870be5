package textrun

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	plain = Style{FontSize: 14}
	bold  = Style{Bold: true, FontSize: 14}
	red   = Style{Color: "#FF0000", FontSize: 14}
	blue  = Style{Color: "#0000FF", Italic: true}
)

func TestReplaceAllSingleRun(t *testing.T) {
	runs := []Run{{Text: "Problem: {{PROBLEM_1}} today", Style: plain}}

	got, n := ReplaceAll(runs, "{{PROBLEM_1}}", "Walkers are unreliable")
	require.Equal(t, 1, n)
	want := []Run{{Text: "Problem: Walkers are unreliable today", Style: plain}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
	// 入参不被修改
	assert.Equal(t, "Problem: {{PROBLEM_1}} today", runs[0].Text)
}

func TestReplaceAllTokenSplitAcrossStyles(t *testing.T) {
	runs := []Run{
		{Text: "Before ", Style: plain},
		{Text: "{{PRO", Style: bold},
		{Text: "BLEM", Style: red},
		{Text: "_1}} after", Style: blue},
	}

	got, n := ReplaceAll(runs, "{{PROBLEM_1}}", "X")
	require.Equal(t, 1, n)
	want := []Run{
		{Text: "Before ", Style: plain},
		{Text: "X", Style: bold},
		{Text: " after", Style: blue},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceAllEverySplitPosition(t *testing.T) {
	const token = "{{SOLUTION_3}}"
	const prefix, suffix = "a<", ">z"
	text := prefix + token + suffix

	for i := 1; i < len(text); i++ {
		for j := i + 1; j < len(text); j++ {
			t.Run(fmt.Sprintf("cut_%d_%d", i, j), func(t *testing.T) {
				runs := []Run{
					{Text: text[:i], Style: plain},
					{Text: text[i:j], Style: bold},
					{Text: text[j:], Style: red},
				}
				got, n := ReplaceAll(runs, token, "value")
				require.Equal(t, 1, n)
				assert.Equal(t, prefix+"value"+suffix, Text(got))

				for _, r := range got {
					assert.NotContains(t, r.Text, "{{")
					assert.NotContains(t, r.Text, "}}")
				}
				// 首尾非占位符文本保持原样式
				assert.Equal(t, plain, got[0].Style)
				assert.Equal(t, red, got[len(got)-1].Style)
			})
		}
	}
}

func TestReplaceAllMultipleOccurrences(t *testing.T) {
	runs := append(Split("{{A}} and {{A}}", plain, 3, 9), Run{Text: " and {{A}}", Style: bold})

	got, n := ReplaceAll(runs, "{{A}}", "alpha")
	require.Equal(t, 3, n)
	assert.Equal(t, "alpha and alpha and alpha", Text(got))
}

func TestReplaceAllIsIdempotent(t *testing.T) {
	runs := Split("Vision: {{VISION_STATEMENT}}", plain, 10, 20)

	once, n1 := ReplaceAll(runs, "{{VISION_STATEMENT}}", "Every dog walked")
	twice, n2 := ReplaceAll(once, "{{VISION_STATEMENT}}", "Every dog walked")

	assert.Equal(t, 1, n1)
	assert.Equal(t, 0, n2)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second pass changed runs (-once +twice):\n%s", diff)
	}
}

func TestReplaceAllIsCaseSensitive(t *testing.T) {
	runs := []Run{{Text: "{{problem_1}}", Style: plain}}
	got, n := ReplaceAll(runs, "{{PROBLEM_1}}", "x")
	assert.Equal(t, 0, n)
	assert.Equal(t, runs, got)
}

func TestScan(t *testing.T) {
	d := DefaultDelimiters
	text := "{{COMPANY_NAME}} {{ not a token }} {{TAM_VALUE}} {{COMPANY_NAME}} {{lower}} {{{GTM_1}}"

	assert.Equal(t, []string{"COMPANY_NAME", "TAM_VALUE", "GTM_1"}, d.Scan(text))
	assert.Empty(t, d.Scan("no tokens here"))
	assert.Equal(t, "<<RISK_1>>", Delimiters{Open: "<<", Close: ">>"}.Wrap("RISK_1"))
}
