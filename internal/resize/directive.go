package resize

import (
	"math"
	"strconv"
	"strings"

	"github.com/lensferno/imgtool/internal/errors"
)

// Rule selects how target dimensions are derived from the natural size.
type Rule int

const (
	NoResize Rule = iota
	Size
	Scale
	ShortEdge
	LongEdge
	Width
	Height
)

var ruleNames = map[Rule]string{
	NoResize:  "no_resize",
	Size:      "size",
	Scale:     "scale",
	ShortEdge: "short_edge",
	LongEdge:  "long_edge",
	Width:     "width",
	Height:    "height",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRule accepts the snake_case rule names, case-insensitively.
func ParseRule(s string) (Rule, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return NoResize, nil
	}
	for rule, name := range ruleNames {
		if name == lower {
			return rule, nil
		}
	}
	return NoResize, errors.Newf(errors.ErrConfig, "invalid resize rule %q", s)
}

// Directive is a validated resize instruction. Fields a rule does not use are ignored.
type Directive struct {
	Rule            Rule
	EdgeSize        uint32
	Width           float32
	Height          float32
	Ratio           float32
	DoNotEnlarge    bool
	KeepAspectRatio bool
}

// NewDirective returns a NoResize directive with the default flags.
func NewDirective() Directive {
	return Directive{Rule: NoResize, KeepAspectRatio: true}
}

// Active reports whether the directive asks for any resizing.
func (d Directive) Active() bool {
	return d.Rule != NoResize
}

// Validate checks that the fields the rule needs are populated.
func (d Directive) Validate() error {
	for _, v := range []float32{d.Width, d.Height, d.Ratio} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Newf(errors.ErrConfig, "resize values must be finite numbers (w=%v, h=%v, ratio=%v)", d.Width, d.Height, d.Ratio)
		}
	}
	if d.Width > math.MaxUint32 || d.Height > math.MaxUint32 {
		return errors.Newf(errors.ErrConfig, "resize width and height must not exceed %d (w=%v, h=%v)", uint32(math.MaxUint32), d.Width, d.Height)
	}
	if d.Width < 0 || d.Height < 0 || d.Ratio < 0 {
		return errors.Newf(errors.ErrConfig, "resize values must not be negative (w=%v, h=%v, ratio=%v)", d.Width, d.Height, d.Ratio)
	}

	switch d.Rule {
	case NoResize:
		return nil
	case Size:
		if d.Width == 0 || d.Height == 0 {
			return errors.New(errors.ErrConfig, "width and height are required when resize rule is `size`")
		}
	case Scale:
		if d.Ratio == 0 && (d.Width == 0 || d.Height == 0) {
			return errors.New(errors.ErrConfig, "width and height are required when resize rule is `scale` and `ratio` is not set")
		}
	case ShortEdge, LongEdge:
		if d.EdgeSize == 0 {
			return errors.Newf(errors.ErrConfig, "edge_size is required when resize rule is `%s`", d.Rule)
		}
	case Width:
		if d.Width == 0 {
			return errors.New(errors.ErrConfig, "width is required when resize rule is `width`")
		}
	case Height:
		if d.Height == 0 {
			return errors.New(errors.ErrConfig, "height is required when resize rule is `height`")
		}
	default:
		return errors.Newf(errors.ErrConfig, "unknown resize rule %d", int(d.Rule))
	}
	return nil
}

// ParseDirective parses the --resize flag form `<rule>[:key=value[,key=value...]]`.
//
// Keys: edge_size, ratio, w (or width), h (or height), donot_enlarge, keep_aspect_ratio.
// When the rule is `scale` and ratio is given, w and h are not read.
func ParseDirective(s string) (Directive, error) {
	d := NewDirective()

	ruleText, argText, _ := strings.Cut(s, ":")
	rule, err := ParseRule(ruleText)
	if err != nil {
		return d, err
	}
	d.Rule = rule

	args, err := parseArgs(argText)
	if err != nil {
		return d, err
	}

	if v, ok := args["donot_enlarge"]; ok {
		if d.DoNotEnlarge, err = parseBool("donot_enlarge", v); err != nil {
			return d, err
		}
	}
	if v, ok := args["keep_aspect_ratio"]; ok {
		if d.KeepAspectRatio, err = parseBool("keep_aspect_ratio", v); err != nil {
			return d, err
		}
	}

	switch rule {
	case Size:
		if d.Width, err = requireFloat(args, "w"); err != nil {
			return d, err
		}
		if d.Height, err = requireFloat(args, "h"); err != nil {
			return d, err
		}
	case Scale:
		if _, ok := args["ratio"]; ok {
			if d.Ratio, err = requireFloat(args, "ratio"); err != nil {
				return d, err
			}
			break
		}
		if d.Width, err = requireFloat(args, "w"); err != nil {
			return d, err
		}
		if d.Height, err = requireFloat(args, "h"); err != nil {
			return d, err
		}
	case ShortEdge, LongEdge:
		v, ok := args["edge_size"]
		if !ok {
			return d, errors.Newf(errors.ErrConfig, "edge_size is required when resize rule is `%s`", rule)
		}
		edge, perr := strconv.ParseUint(v, 10, 32)
		if perr != nil {
			return d, errors.Wrapf(perr, errors.ErrConfig, "invalid edge_size %q", v)
		}
		d.EdgeSize = uint32(edge)
	case Width:
		if d.Width, err = requireFloat(args, "w"); err != nil {
			return d, err
		}
	case Height:
		if d.Height, err = requireFloat(args, "h"); err != nil {
			return d, err
		}
	}

	return d, d.Validate()
}

var keyAliases = map[string]string{
	"width":  "w",
	"height": "h",
}

func parseArgs(s string) (map[string]string, error) {
	args := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Newf(errors.ErrConfig, "malformed resize argument %q, expected key=value", pair)
		}
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		args[key] = strings.TrimSpace(value)
	}
	return args, nil
}

func requireFloat(args map[string]string, key string) (float32, error) {
	v, ok := args[key]
	if !ok {
		return 0, errors.Newf(errors.ErrConfig, "resize argument %q is required", key)
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrConfig, "invalid %s %q", key, v)
	}
	return float32(f), nil
}

func parseBool(key, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrConfig, "invalid %s %q", key, v)
	}
	return b, nil
}
