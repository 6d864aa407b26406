// Package codec is the boundary to the pixel-level image library. The batch
// pipeline only sees Compress, Convert and ProbeSize; everything about how
// pixels are decoded, resized and encoded lives behind it.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/lensferno/imgtool/internal/resize"
	"github.com/lensferno/imgtool/pkg/imgutil"
)

// Error codes reported by a Codec.
const (
	// CodeUnsupported also covers animated GIFs: only single-frame images are transcoded.
	CodeUnsupported = 10400
	CodeDecode      = 10401
	CodeEncode      = 10402
	CodeProbe       = 10403
	// CodeSameFormat means a conversion was asked for the format the source already has.
	CodeSameFormat = 10407
)

// Error is a codec failure carrying a numeric code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec error %d: %s", e.Code, e.Message)
}

func newError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsSameFormat reports whether err is a CodeSameFormat codec error.
func IsSameFormat(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeSameFormat
}

// Codec compresses and converts in-memory images.
type Codec interface {
	Compress(data []byte, params Params) ([]byte, error)
	Convert(data []byte, params Params, target Format) ([]byte, error)
	ProbeSize(data []byte) (resize.Dimensions, error)
}

// Format is an output format the CLI can convert to. FormatNone means
// "keep the source format".
type Format int

const (
	FormatNone Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatWebP
	FormatTIFF
)

func (f Format) String() string {
	if f == FormatNone {
		return "none"
	}
	return f.Kind().String()
}

func (f Format) IsSet() bool {
	return f != FormatNone
}

// Kind maps the format to the sniffer's container kind.
func (f Format) Kind() imgutil.Kind {
	switch f {
	case FormatJPEG:
		return imgutil.KindJPEG
	case FormatPNG:
		return imgutil.KindPNG
	case FormatGIF:
		return imgutil.KindGIF
	case FormatWebP:
		return imgutil.KindWebP
	case FormatTIFF:
		return imgutil.KindTIFF
	default:
		return imgutil.KindUnknown
	}
}

// ParseFormat accepts jpg, jpeg, png, gif, webp and tiff in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	case "webp":
		return FormatWebP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	default:
		return FormatNone, fmt.Errorf("invalid target format %q (want jpg, jpeg, png, gif, webp or tiff)", s)
	}
}

// TIFFCompression names a TIFF compression algorithm.
type TIFFCompression string

const (
	TIFFUncompressed TIFFCompression = "uncompressed"
	TIFFDeflate      TIFFCompression = "deflate"
	TIFFLZW          TIFFCompression = "lzw"
	TIFFPackbits     TIFFCompression = "packbits"
)

var tiffCompressions = map[TIFFCompression]tiff.CompressionType{
	TIFFUncompressed: tiff.Uncompressed,
	TIFFDeflate:      tiff.Deflate,
}

// ParseTIFFCompression resolves a name to an algorithm the encoder can write.
// lzw and packbits are recognised but rejected.
func ParseTIFFCompression(s string) (TIFFCompression, error) {
	c := TIFFCompression(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return TIFFDeflate, nil
	}
	if _, ok := tiffCompressions[c]; ok {
		return c, nil
	}
	switch c {
	case TIFFLZW, TIFFPackbits:
		return "", fmt.Errorf("tiff algorithm %q is not supported by the encoder (use deflate or uncompressed)", s)
	default:
		return "", fmt.Errorf("invalid tiff algorithm %q", s)
	}
}

type JPEGParams struct {
	Quality int
}

type PNGParams struct {
	// OptimizationLevel 0-6; higher spends more time on smaller output.
	OptimizationLevel int
}

type GIFParams struct {
	Quality int
}

type TIFFParams struct {
	Algorithm TIFFCompression
}

// Params is the per-run compression template. Width and Height are
// overwritten per file by the resize resolver; zero keeps the natural size.
type Params struct {
	JPEG JPEGParams
	PNG  PNGParams
	GIF  GIFParams
	TIFF TIFFParams

	KeepMetadata bool
	Lossless     bool

	Width        uint32
	Height       uint32
	DoNotEnlarge bool
}

func DefaultParams() Params {
	return Params{
		JPEG: JPEGParams{Quality: 80},
		PNG:  PNGParams{OptimizationLevel: 2},
		GIF:  GIFParams{Quality: 80},
		TIFF: TIFFParams{Algorithm: TIFFDeflate},
	}
}

// Validate range-checks the per-format options.
func (p Params) Validate() error {
	if p.JPEG.Quality < 1 || p.JPEG.Quality > 100 {
		return fmt.Errorf("jpeg quality must be within 1-100, got %d", p.JPEG.Quality)
	}
	if p.PNG.OptimizationLevel < 0 || p.PNG.OptimizationLevel > 6 {
		return fmt.Errorf("png optimization_level must be within 0-6, got %d", p.PNG.OptimizationLevel)
	}
	if p.GIF.Quality < 0 || p.GIF.Quality > 100 {
		return fmt.Errorf("gif quality must be within 0-100, got %d", p.GIF.Quality)
	}
	if _, ok := tiffCompressions[p.TIFF.Algorithm]; !ok {
		return fmt.Errorf("unsupported tiff algorithm %q", p.TIFF.Algorithm)
	}
	return nil
}
