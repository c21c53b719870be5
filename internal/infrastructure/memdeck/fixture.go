package memdeck

import (
	"fmt"
	"strings"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/pkg/textrun"
)

// 内置母版与图表数据表
const (
	PitchMasterID           = "pitch-master"
	PitchChartSpreadsheetID = "pitch-chart-data"
	PitchChartSheet         = "[Chart] Market Size"
)

var (
	bodyStyle    = textrun.Style{FontSize: 14, Font: "Inter"}
	headingStyle = textrun.Style{Bold: true, FontSize: 28, Font: "Inter"}
	accentStyle  = textrun.Style{Bold: true, Color: "#2F5BEA", FontSize: 14, Font: "Inter"}
	italicStyle  = textrun.Style{Italic: true, FontSize: 14, Font: "Inter"}
)

var sectionTitles = map[string]string{
	"PROBLEM":        "The Problem",
	"INSIGHT":        "Key Insights",
	"SOLUTION":       "Our Solution",
	"FLOW":           "How It Works",
	"WHY_NOW":        "Why Now",
	"BUSINESS_MODEL": "Business Model",
	"GTM":            "Go To Market",
	"COMPETITION":    "Competition",
	"RISK":           "Risks",
}

// NewPitchStore 创建已写入母版与图表数据表的后端
func NewPitchStore() *Store {
	s := NewStore()
	SeedPitchMaster(s, textrun.DefaultDelimiters)
	return s
}

// SeedPitchMaster 写入母版：每个占位符都被切成多个不同样式的片段
func SeedPitchMaster(s *Store, d textrun.Delimiters) {
	p := &Presentation{ID: PitchMasterID, Title: "Pitch Deck Master"}

	p.Slides = append(p.Slides, &Slide{
		ObjectID: "slide_title",
		Shapes: []*Shape{
			{ObjectID: "title_company", Runs: fragmented(d.Wrap(entity.TokenCompanyName), headingStyle, accentStyle)},
			{ObjectID: "title_tagline", Runs: fragmented(d.Wrap(entity.TokenTagline), italicStyle, bodyStyle)},
			{ObjectID: "title_subtitle", Runs: append(
				[]textrun.Run{{Text: "Subtitle: ", Style: bodyStyle}},
				fragmented(d.Wrap(entity.TokenSubtitle), bodyStyle, accentStyle)...,
			)},
		},
	})

	for _, f := range entity.ListFields {
		slide := &Slide{
			ObjectID: "slide_" + strings.ToLower(f.Prefix),
			Shapes:   []*Shape{{ObjectID: strings.ToLower(f.Prefix) + "_heading", Runs: []textrun.Run{{Text: sectionTitles[f.Prefix], Style: headingStyle}}}},
		}
		for i := 1; i <= f.Count; i++ {
			token := d.Wrap(fmt.Sprintf("%s_%d", f.Prefix, i))
			runs := []textrun.Run{{Text: fmt.Sprintf("%d. ", i), Style: accentStyle}}
			if i%2 == 0 {
				runs = append(runs, fragmented(token, bodyStyle, italicStyle, accentStyle)...)
			} else {
				runs = append(runs, textrun.Run{Text: token, Style: bodyStyle})
			}
			slide.Shapes = append(slide.Shapes, &Shape{ObjectID: fmt.Sprintf("%s_%d", strings.ToLower(f.Prefix), i), Runs: runs})
		}
		p.Slides = append(p.Slides, slide)

		if f.Prefix == "FLOW" {
			p.Slides = append(p.Slides, marketSlide(d))
		}
	}

	p.Slides = append(p.Slides, &Slide{
		ObjectID: "slide_vision",
		Shapes: []*Shape{
			{ObjectID: "vision_heading", Runs: []textrun.Run{{Text: "Our Vision", Style: headingStyle}}},
			{ObjectID: "vision_body", Runs: fragmented(d.Wrap(entity.TokenVisionStatement), italicStyle, bodyStyle, accentStyle)},
			{ObjectID: "vision_footer", Runs: append(
				fragmented(d.Wrap(entity.TokenCompanyName), accentStyle, bodyStyle),
				textrun.Run{Text: " | Confidential", Style: bodyStyle},
			)},
		},
	})

	s.PutPresentation(p)
	s.PutSpreadsheet(&Spreadsheet{
		ID: PitchChartSpreadsheetID,
		Tabs: []*Tab{
			{Title: "Notes", Values: [][]any{{"market sizing inputs"}}},
			{Title: PitchChartSheet, Values: [][]any{
				{"Metric", "Value"},
				{"TAM", 0.0},
				{"SAM", 0.0},
				{"SOM", 0.0},
			}},
		},
	})
}

func marketSlide(d textrun.Delimiters) *Slide {
	line := func(id, label, token string) *Shape {
		runs := []textrun.Run{{Text: label + ": ", Style: accentStyle}}
		runs = append(runs, fragmented(d.Wrap(token), bodyStyle, accentStyle)...)
		return &Shape{ObjectID: id, Runs: runs}
	}
	return &Slide{
		ObjectID: "slide_market",
		Shapes: []*Shape{
			{ObjectID: "market_heading", Runs: []textrun.Run{{Text: "Market Opportunity", Style: headingStyle}}},
			line("market_tam", "TAM", entity.TokenTAM),
			line("market_sam", "SAM", entity.TokenSAM),
			line("market_som", "SOM", entity.TokenSOM),
		},
		Charts: []*Chart{{
			LinkedChart: entity.LinkedChart{
				ObjectID:      "market_chart",
				SpreadsheetID: PitchChartSpreadsheetID,
				ChartID:       1,
			},
			SourceSheet: PitchChartSheet,
		}},
	}
}

// fragmented 把文本切成与样式数量相同的片段，依次套用样式
func fragmented(text string, styles ...textrun.Style) []textrun.Run {
	if len(styles) < 2 || len(text) < len(styles) {
		return []textrun.Run{{Text: text, Style: styles[0]}}
	}
	step := len(text) / len(styles)
	runs := make([]textrun.Run, 0, len(styles))
	for i, st := range styles {
		start := i * step
		end := start + step
		if i == len(styles)-1 {
			end = len(text)
		}
		runs = append(runs, textrun.Run{Text: text[start:end], Style: st})
	}
	return runs
}
