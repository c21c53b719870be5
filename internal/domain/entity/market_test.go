package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertFigureConsistent(t *testing.T, name string, f MarketFigure) {
	t.Helper()
	parsed, ok := ParseDisplay(f.Display)
	require.True(t, ok, "%s display %q must parse", name, f.Display)
	assert.Equal(t, f.Billions, parsed, "%s display %q", name, f.Display)
}

func TestNormalizeMarket(t *testing.T) {
	tests := []struct {
		name          string
		tam, sam, som float64
		want          [3]string
		repaired      []string
	}{
		{"ordered", 120, 30, 3, [3]string{"$120B", "$30B", "$3B"}, nil},
		{"sam above tam", 100, 200, 5, [3]string{"$100B", "$50B", "$5B"}, []string{TokenSAM}},
		{"som above sam", 100, 40, 50, [3]string{"$100B", "$40B", "$4B"}, []string{TokenSOM}},
		{"nan tam", math.NaN(), 30, 3, [3]string{"$150B", "$30B", "$3B"}, []string{TokenTAM}},
		{"inf sam", 100, math.Inf(1), 3, [3]string{"$100B", "$50B", "$3B"}, []string{TokenSAM}},
		{"negative inf som", 100, 30, math.Inf(-1), [3]string{"$100B", "$30B", "$3B"}, []string{TokenSOM}},
		{"all negative", -1, -2, -3, [3]string{"$150B", "$75B", "$7.5B"}, []string{TokenTAM, TokenSAM, TokenSOM}},
		{"all zero", 0, 0, 0, [3]string{"$150B", "$75B", "$7.5B"}, []string{TokenTAM, TokenSAM, TokenSOM}},
		{"mixed units", 1200, 500, 0.5, [3]string{"$1.2T", "$500B", "$500M"}, nil},
		{"below smallest unit", 1e-9, 1e-9, 1e-9, [3]string{"$0.01K", "$0.01K", "$0.01K"}, nil},
		{"rounds into next unit", 999.999, 0.9999999, 0.0009999999, [3]string{"$1T", "$1B", "$1M"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, repaired := NormalizeMarket(tt.tam, tt.sam, tt.som)

			assert.Equal(t, tt.want, [3]string{m.TAM.Display, m.SAM.Display, m.SOM.Display})
			assert.Equal(t, tt.repaired, repaired)
			assert.True(t, m.Ordered(), "tam=%v sam=%v som=%v", m.TAM.Billions, m.SAM.Billions, m.SOM.Billions)
			assertFigureConsistent(t, "tam", m.TAM)
			assertFigureConsistent(t, "sam", m.SAM)
			assertFigureConsistent(t, "som", m.SOM)
		})
	}
}

func TestFigureDisplayMatchesNumber(t *testing.T) {
	for _, v := range []float64{1e-12, 1e-9, 3e-9, 0.0000049, 0.00123, 0.75, 1, 123.456, 999.999, 1e6} {
		f := figure(v)
		assert.NotEqual(t, "$0K", f.Display, "value %v", v)
		assertFigureConsistent(t, f.Display, f)
	}
}

func TestParseDisplay(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$150B", 150, true},
		{"$1.2T", 1200, true},
		{"$500M", 0.5, true},
		{"150 billion", 150, true},
		{"150bn", 150, true},
		{"1,500 million", 1.5, true},
		{"USD 2.5 trillion", 2500, true},
		{"7 thousand", 0.000007, true},
		{"42", 42, true},
		{"n/a", 0, false},
		{"lots", 0, false},
		{"", 0, false},
		{"-5B", 0, false},
		{"$0K", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDisplay(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestFormatBillions(t *testing.T) {
	tests := map[float64]string{
		150:       "$150B",
		1.5:       "$1.5B",
		0.75:      "$750M",
		1500:      "$1.5T",
		999.999:   "$1T",
		0.0000049: "$4.9K",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatBillions(in), "input %v", in)
	}
}
