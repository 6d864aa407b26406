package resize

import (
	"math"
	"strings"

	"github.com/lensferno/imgtool/internal/errors"
)

// Dimensions is a width/height pair in pixels. As a resize target, a zero
// dimension leaves the choice to the codec.
type Dimensions struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

func (d Dimensions) IsZero() bool {
	return d.Width == 0 && d.Height == 0
}

// Resolve turns a directive and the natural image size into target dimensions.
//
// Scaling is done in float32 and truncated. DoNotEnlarge is not applied here;
// see ResolveWithPolicy.
func Resolve(d Directive, natural Dimensions) Dimensions {
	var target Dimensions
	w, h := float32(natural.Width), float32(natural.Height)

	switch d.Rule {
	case Size:
		target.Width = toPixels(d.Width)
		target.Height = toPixels(d.Height)
	case Scale:
		if d.Ratio != 0 {
			target.Width = toPixels(w * d.Ratio)
			target.Height = toPixels(h * d.Ratio)
		} else {
			target.Width = toPixels(w * d.Width)
			target.Height = toPixels(h * d.Height)
		}
	case ShortEdge, LongEdge:
		// Square images take the height branch for both rules.
		widthIsEdge := natural.Width > natural.Height
		if d.Rule == ShortEdge {
			widthIsEdge = natural.Width < natural.Height
		}

		if widthIsEdge {
			target.Width = d.EdgeSize
			if d.KeepAspectRatio {
				scale := float32(d.EdgeSize) / w
				target.Height = toPixels(h * scale)
			}
		} else {
			target.Height = d.EdgeSize
			if d.KeepAspectRatio {
				scale := float32(d.EdgeSize) / h
				target.Width = toPixels(w * scale)
			}
		}
	case Width:
		target.Width = toPixels(d.Width)
		if !d.KeepAspectRatio {
			target.Height = natural.Height
		}
	case Height:
		target.Height = toPixels(d.Height)
		if !d.KeepAspectRatio {
			target.Width = natural.Width
		}
	}

	return target
}

// toPixels truncates v toward zero, saturating at 0 and math.MaxUint32.
// NaN maps to 0.
func toPixels(v float32) uint32 {
	switch {
	case math.IsNaN(float64(v)) || v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}

// EnlargePolicy decides where DoNotEnlarge is enforced.
type EnlargePolicy int

const (
	// EnlargeDefer leaves DoNotEnlarge to the codec as a hint.
	EnlargeDefer EnlargePolicy = iota
	// EnlargeClamp drops any target that would grow the image past its natural size.
	EnlargeClamp
)

func (p EnlargePolicy) String() string {
	if p == EnlargeClamp {
		return "clamp"
	}
	return "defer"
}

func ParseEnlargePolicy(s string) (EnlargePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "defer":
		return EnlargeDefer, nil
	case "clamp":
		return EnlargeClamp, nil
	default:
		return EnlargeDefer, errors.Newf(errors.ErrConfig, "invalid enlarge policy %q (want defer or clamp)", s)
	}
}

// ResolveWithPolicy resolves d and, under EnlargeClamp, returns a zero target
// when DoNotEnlarge is set and either requested dimension exceeds the natural one.
func ResolveWithPolicy(d Directive, natural Dimensions, policy EnlargePolicy) Dimensions {
	target := Resolve(d, natural)
	if policy == EnlargeClamp && d.DoNotEnlarge && Enlarges(target, natural) {
		return Dimensions{}
	}
	return target
}

// Enlarges reports whether any non-zero target dimension is larger than natural.
func Enlarges(target, natural Dimensions) bool {
	return target.Width > natural.Width || target.Height > natural.Height
}
