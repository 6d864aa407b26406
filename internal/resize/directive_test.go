package resize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensferno/imgtool/internal/errors"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		input string
		want  Directive
	}{
		{"no_resize", Directive{Rule: NoResize, KeepAspectRatio: true}},
		{"", Directive{Rule: NoResize, KeepAspectRatio: true}},
		{"short_edge:edge_size=300", Directive{Rule: ShortEdge, EdgeSize: 300, KeepAspectRatio: true}},
		{"LONG_EDGE:edge_size=1080,keep_aspect_ratio=false", Directive{Rule: LongEdge, EdgeSize: 1080}},
		{"size:w=800,h=600", Directive{Rule: Size, Width: 800, Height: 600, KeepAspectRatio: true}},
		{"size:width=800,height=600", Directive{Rule: Size, Width: 800, Height: 600, KeepAspectRatio: true}},
		{"scale:ratio=0.5", Directive{Rule: Scale, Ratio: 0.5, KeepAspectRatio: true}},
		{"scale:ratio=0.5,w=0.1,h=0.2", Directive{Rule: Scale, Ratio: 0.5, KeepAspectRatio: true}},
		{"scale:w=0.8,h=0.7", Directive{Rule: Scale, Width: 0.8, Height: 0.7, KeepAspectRatio: true}},
		{"width:w=640,donot_enlarge=true", Directive{Rule: Width, Width: 640, DoNotEnlarge: true, KeepAspectRatio: true}},
		{"height: h = 360 , keep_aspect_ratio = false", Directive{Rule: Height, Height: 360}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDirective(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDirectiveErrors(t *testing.T) {
	inputs := []string{
		"zoom:ratio=2",
		"size:w=800",
		"scale:w=0.5",
		"short_edge",
		"short_edge:edge_size=-1",
		"short_edge:edge_size=abc",
		"width:h=10",
		"height:w=10",
		"width:w=ten",
		"width:w=10,donot_enlarge=maybe",
		"width:w",
		"scale:ratio=-0.5",
		"size:w=0,h=10",
		"size:w=NaN,h=600",
		"size:w=Inf,h=600",
		"width:w=-Inf",
		"size:w=1e10,h=600",
		"height:h=1e50",
		"scale:ratio=NaN",
		"scale:w=NaN,h=1",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDirective(input)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfig), "got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewDirective().Validate())
	assert.NoError(t, Directive{Rule: Scale, Ratio: 0.3}.Validate())
	assert.NoError(t, Directive{Rule: Scale, Width: 0.3, Height: 0.4}.Validate())

	assert.Error(t, Directive{Rule: Size, Width: 10}.Validate())
	assert.Error(t, Directive{Rule: Scale}.Validate())
	assert.Error(t, Directive{Rule: ShortEdge}.Validate())
	assert.Error(t, Directive{Rule: LongEdge}.Validate())
	assert.Error(t, Directive{Rule: Width}.Validate())
	assert.Error(t, Directive{Rule: Height}.Validate())
	assert.Error(t, Directive{Rule: Rule(42)}.Validate())
	assert.Error(t, Directive{Rule: Width, Width: -5}.Validate())

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	assert.Error(t, Directive{Rule: Size, Width: nan, Height: 10}.Validate())
	assert.Error(t, Directive{Rule: Height, Height: inf}.Validate())
	assert.Error(t, Directive{Rule: Scale, Ratio: nan}.Validate())
	assert.Error(t, Directive{Rule: Width, Width: 1e10}.Validate())
	// Unused fields are still checked.
	assert.Error(t, Directive{Rule: NoResize, Ratio: inf}.Validate())
	assert.NoError(t, Directive{Rule: Width, Width: 65535}.Validate())
}

func TestRuleString(t *testing.T) {
	for rule, name := range ruleNames {
		parsed, err := ParseRule(name)
		require.NoError(t, err)
		assert.Equal(t, rule, parsed)
		assert.Equal(t, name, rule.String())
	}
	assert.Equal(t, "unknown", Rule(99).String())
}
