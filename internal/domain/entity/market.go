package entity

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// 市场规模兜底规则
const (
	DefaultTAMBillions = 150.0
	SAMRatio           = 0.5
	SOMRatio           = 0.1
)

// MarketFigure 同一数值的展示文本与以十亿为单位的数值
type MarketFigure struct {
	Display  string  `json:"display"`
	Billions float64 `json:"billions"`
}

// MarketSize TAM/SAM/SOM，保证 SOM <= SAM <= TAM
type MarketSize struct {
	TAM MarketFigure `json:"tam"`
	SAM MarketFigure `json:"sam"`
	SOM MarketFigure `json:"som"`
}

// NormalizeMarket 按兜底规则修复市场规模，并返回被修复的字段名
// 非正数、非有限数视为缺失；TAM 缺失取默认值，SAM 缺失或大于 TAM 取 TAM*0.5，
// SOM 缺失或大于 SAM 取 SAM*0.1。展示文本总是由数值重新生成，低于 $0.01K 的值按 $0.01K 处理。
func NormalizeMarket(tam, sam, som float64) (MarketSize, []string) {
	var repaired []string
	if !usable(tam) {
		tam = DefaultTAMBillions
		repaired = append(repaired, TokenTAM)
	}
	tamFig := figure(tam)

	samFig, ok := bounded(sam, tamFig)
	if !ok {
		samFig = capAt(figure(tamFig.Billions*SAMRatio), tamFig)
		repaired = append(repaired, TokenSAM)
	}

	somFig, ok := bounded(som, samFig)
	if !ok {
		somFig = capAt(figure(samFig.Billions*SOMRatio), samFig)
		repaired = append(repaired, TokenSOM)
	}

	return MarketSize{TAM: tamFig, SAM: samFig, SOM: somFig}, repaired
}

// Ordered 检查 SOM <= SAM <= TAM
func (m MarketSize) Ordered() bool {
	return m.TAM.Billions >= m.SAM.Billions && m.SAM.Billions >= m.SOM.Billions
}

// bounded 比较的是舍入后的展示数值，保证修复后展示文本同样有序
func bounded(v float64, ceiling MarketFigure) (MarketFigure, bool) {
	if !usable(v) {
		return MarketFigure{}, false
	}
	f := figure(v)
	return f, f.Billions <= ceiling.Billions
}

func capAt(f, ceiling MarketFigure) MarketFigure {
	if f.Billions > ceiling.Billions {
		return ceiling
	}
	return f
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// minDisplayBillions 可展示的最小金额 $0.01K，更小的值会被舍入成 $0K
var minDisplayBillions = 0.01 * units[len(units)-1].scale

// figure 生成展示文本，并让数值与展示文本精确一致
func figure(billions float64) MarketFigure {
	if !(billions >= minDisplayBillions) {
		billions = minDisplayBillions
	}
	display := FormatBillions(billions)
	parsed, ok := ParseDisplay(display)
	if !ok {
		parsed = billions
	}
	return MarketFigure{Display: display, Billions: parsed}
}

type unit struct {
	suffix string
	scale  float64 // 每单位折合十亿
}

var units = []unit{
	{suffix: "T", scale: 1000},
	{suffix: "B", scale: 1},
	{suffix: "M", scale: 0.001},
	{suffix: "K", scale: 0.000001},
}

// FormatBillions 格式化为货币展示文本，如 $150B、$1.5T、$750M
func FormatBillions(billions float64) string {
	u := units[len(units)-1]
	for _, candidate := range units {
		if billions >= candidate.scale {
			u = candidate
			break
		}
	}
	v := math.Round(billions/u.scale*100) / 100
	// 进位后可能跨入更大单位，如 999.999M -> 1000M
	if v >= 1000 && u.suffix != "T" {
		return FormatBillions(v * u.scale)
	}
	return "$" + strconv.FormatFloat(v, 'f', -1, 64) + u.suffix
}

var unitWords = map[string]string{
	"TRILLION": "T",
	"BILLION":  "B",
	"BN":       "B",
	"MILLION":  "M",
	"MM":       "M",
	"THOUSAND": "K",
}

// ParseDisplay 解析 $150B、1.2 trillion、$500M 等文本为十亿单位数值；无单位时按十亿处理
func ParseDisplay(s string) (float64, bool) {
	t := strings.ToUpper(strings.TrimSpace(s))
	t = strings.NewReplacer("$", "", ",", "", "USD", "", " ", "").Replace(t)
	if t == "" {
		return 0, false
	}

	scale := 1.0
	for word, suffix := range unitWords {
		if strings.HasSuffix(t, word) {
			t = strings.TrimSuffix(t, word) + suffix
			break
		}
	}
	for _, u := range units {
		if strings.HasSuffix(t, u.suffix) {
			t = strings.TrimSuffix(t, u.suffix)
			scale = u.scale
			break
		}
	}

	v, err := cast.ToFloat64E(t)
	if err != nil || !usable(v) {
		return 0, false
	}
	return v * scale, true
}

// ChartSeries 图表数据区的行，首行为表头
type ChartSeries struct {
	Rows [][]any `json:"rows"`
}

// MarketSeries 生成 TAM/SAM/SOM 图表数据，单位为百万
func MarketSeries(m MarketSize) ChartSeries {
	millions := func(b float64) float64 {
		return math.Round(b*1000*100) / 100
	}
	return ChartSeries{Rows: [][]any{
		{"Metric", "Value"},
		{"TAM", millions(m.TAM.Billions)},
		{"SAM", millions(m.SAM.Billions)},
		{"SOM", millions(m.SOM.Billions)},
	}}
}
