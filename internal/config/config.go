package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/lensferno/imgtool/internal/codec"
	"github.com/lensferno/imgtool/internal/errors"
	"github.com/lensferno/imgtool/internal/processor"
	"github.com/lensferno/imgtool/internal/resize"
)

//go:embed defaults.toml
var defaultConfig []byte

// Settings mirrors the layered configuration tree.
type Settings struct {
	Prefix          string `koanf:"prefix"`
	Suffix          string `koanf:"suffix"`
	TargetFormat    string `koanf:"target_format"`
	ContinueOnError bool   `koanf:"continue_on_error"`
	DeleteOrigin    bool   `koanf:"delete_origin"`
	DryRun          bool   `koanf:"dry_run"`
	SkipIfBigger    bool   `koanf:"skip_if_bigger"`
	KeepMetadata    bool   `koanf:"keep_metadata"`
	Lossless        bool   `koanf:"lossless"`
	EnlargePolicy   string `koanf:"enlarge_policy"`
	Progress        bool   `koanf:"progress"`
	PlanFormat      string `koanf:"plan_format"`

	JPEG   JPEGSettings   `koanf:"jpeg"`
	PNG    PNGSettings    `koanf:"png"`
	GIF    GIFSettings    `koanf:"gif"`
	TIFF   TIFFSettings   `koanf:"tiff"`
	Resize ResizeSettings `koanf:"resize"`
}

type JPEGSettings struct {
	Quality int `koanf:"quality"`
}

type PNGSettings struct {
	OptimizationLevel int `koanf:"optimization_level"`
}

type GIFSettings struct {
	Quality int `koanf:"quality"`
}

type TIFFSettings struct {
	Algorithm string `koanf:"algorithm"`
}

// ResizeSettings describes the resize directive either as one string in the
// --resize form, or field by field. A non-empty Directive wins.
type ResizeSettings struct {
	Directive       string  `koanf:"directive"`
	Rule            string  `koanf:"rule"`
	EdgeSize        uint32  `koanf:"edge_size"`
	Width           float32 `koanf:"width"`
	Height          float32 `koanf:"height"`
	Ratio           float32 `koanf:"ratio"`
	DoNotEnlarge    bool    `koanf:"donot_enlarge"`
	KeepAspectRatio bool    `koanf:"keep_aspect_ratio"`
}

// PlanFormat selects how a dry run is printed.
type PlanFormat string

const (
	PlanTable PlanFormat = "table"
	PlanYAML  PlanFormat = "yaml"
)

// Run is a validated configuration, ready to hand to the processor.
type Run struct {
	Processor    processor.Config
	DryRun       bool
	SkipIfBigger bool
	Progress     bool
	PlanFormat   PlanFormat
}

// Build validates s and turns it into a Run for the given input and output.
// Every failure is an errors.ErrConfig error.
func (s Settings) Build(input, output string) (*Run, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errors.New(errors.ErrConfig, "input path is required")
	}
	if strings.TrimSpace(output) == "" {
		return nil, errors.New(errors.ErrConfig, "output path is required")
	}

	target := codec.FormatNone
	if strings.TrimSpace(s.TargetFormat) != "" {
		var err error
		if target, err = codec.ParseFormat(s.TargetFormat); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfig, "target_format")
		}
	}

	tiffAlgo, err := codec.ParseTIFFCompression(s.TIFF.Algorithm)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "tiff.algorithm")
	}

	params := codec.Params{
		JPEG:         codec.JPEGParams{Quality: s.JPEG.Quality},
		PNG:          codec.PNGParams{OptimizationLevel: s.PNG.OptimizationLevel},
		GIF:          codec.GIFParams{Quality: s.GIF.Quality},
		TIFF:         codec.TIFFParams{Algorithm: tiffAlgo},
		KeepMetadata: s.KeepMetadata,
		Lossless:     s.Lossless,
	}
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "codec options")
	}

	directive, err := s.Resize.directive()
	if err != nil {
		return nil, err
	}

	policy, err := resize.ParseEnlargePolicy(s.EnlargePolicy)
	if err != nil {
		return nil, err
	}

	planFormat := PlanFormat(strings.ToLower(strings.TrimSpace(s.PlanFormat)))
	switch planFormat {
	case "":
		planFormat = PlanTable
	case PlanTable, PlanYAML:
	default:
		return nil, errors.Newf(errors.ErrConfig, "invalid plan_format %q (want table or yaml)", s.PlanFormat)
	}

	return &Run{
		Processor: processor.Config{
			Input:           input,
			Output:          output,
			TargetFormat:    target,
			Params:          params,
			Resize:          directive,
			EnlargePolicy:   policy,
			Prefix:          s.Prefix,
			Suffix:          s.Suffix,
			ContinueOnError: s.ContinueOnError,
			DeleteOrigin:    s.DeleteOrigin,
		},
		DryRun:       s.DryRun,
		SkipIfBigger: s.SkipIfBigger,
		Progress:     s.Progress,
		PlanFormat:   planFormat,
	}, nil
}

func (r ResizeSettings) directive() (resize.Directive, error) {
	if strings.TrimSpace(r.Directive) != "" {
		d, err := resize.ParseDirective(r.Directive)
		if err != nil {
			return d, errors.Wrap(err, errors.ErrConfig, fmt.Sprintf("resize %q", r.Directive))
		}
		return d, nil
	}

	rule, err := resize.ParseRule(r.Rule)
	if err != nil {
		return resize.Directive{}, err
	}
	d := resize.Directive{
		Rule:            rule,
		EdgeSize:        r.EdgeSize,
		Width:           r.Width,
		Height:          r.Height,
		Ratio:           r.Ratio,
		DoNotEnlarge:    r.DoNotEnlarge,
		KeepAspectRatio: r.KeepAspectRatio,
	}
	return d, d.Validate()
}
