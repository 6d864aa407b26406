package codec

import (
	"bytes"
	"image"
	"image/gif"
	"image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lensferno/imgtool/internal/resize"
	"github.com/lensferno/imgtool/pkg/imgutil"
)

// Imaging is a Codec backed by github.com/disintegration/imaging and the
// golang.org/x/image decoders. It reads JPEG, PNG, GIF, WebP, TIFF and BMP
// and writes every target format except WebP.
type Imaging struct{}

func NewImaging() *Imaging {
	return &Imaging{}
}

var _ Codec = (*Imaging)(nil)

func (c *Imaging) ProbeSize(data []byte) (resize.Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return resize.Dimensions{}, newError(CodeProbe, "read image header: %v", err)
	}
	return resize.Dimensions{Width: uint32(cfg.Width), Height: uint32(cfg.Height)}, nil
}

// Compress re-encodes data in its own format.
func (c *Imaging) Compress(data []byte, params Params) ([]byte, error) {
	kind := imgutil.Detect(data)
	target, ok := formatForKind(kind)
	if !ok {
		return nil, newError(CodeUnsupported, "cannot compress %s images", kind)
	}
	return c.transcode(data, kind, target, params)
}

// Convert re-encodes data as target. It fails with CodeSameFormat when the
// source already is target.
func (c *Imaging) Convert(data []byte, params Params, target Format) ([]byte, error) {
	kind := imgutil.Detect(data)
	if kind == target.Kind() {
		return nil, newError(CodeSameFormat, "source is already %s", target)
	}
	return c.transcode(data, kind, target, params)
}

func (c *Imaging) transcode(data []byte, kind imgutil.Kind, target Format, params Params) ([]byte, error) {
	if target == FormatWebP {
		return nil, newError(CodeUnsupported, "webp encoding is not available")
	}
	if kind == imgutil.KindUnknown {
		return nil, newError(CodeUnsupported, "unrecognised image format")
	}

	if kind == imgutil.KindGIF {
		if frames := gifFrames(data); frames > 1 {
			return nil, newError(CodeUnsupported, "animated gif with %d frames", frames)
		}
	}

	// Pixels are rotated upright unless the EXIF block, with its orientation tag, travels along.
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(!params.KeepMetadata))
	if err != nil {
		return nil, newError(CodeDecode, "decode %s: %v", kind, err)
	}

	img = applyResize(img, params)

	var buf bytes.Buffer
	switch target {
	case FormatJPEG:
		quality := params.JPEG.Quality
		if params.Lossless {
			quality = 100
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(pngLevel(params)))
	case FormatGIF:
		err = imaging.Encode(&buf, img, imaging.GIF, imaging.GIFNumColors(gifColors(params.GIF.Quality)))
	case FormatTIFF:
		compression, ok := tiffCompressions[params.TIFF.Algorithm]
		if !ok {
			compression = tiff.Deflate
		}
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: compression, Predictor: compression == tiff.Deflate})
	default:
		return nil, newError(CodeUnsupported, "unknown target format %d", int(target))
	}
	if err != nil {
		return nil, newError(CodeEncode, "encode %s: %v", target, err)
	}

	out := buf.Bytes()
	if params.KeepMetadata && kind == imgutil.KindJPEG && target == FormatJPEG {
		out = carryExif(data, out)
	}
	return out, nil
}

// gifFrames counts the frames of a GIF. Broken data yields 0 and is left
// for the regular decoder to report.
func gifFrames(data []byte) int {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	return len(g.Image)
}

func applyResize(img image.Image, params Params) image.Image {
	target := resize.Dimensions{Width: params.Width, Height: params.Height}
	if target.IsZero() {
		return img
	}

	bounds := img.Bounds()
	natural := resize.Dimensions{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy())}
	if params.DoNotEnlarge && resize.Enlarges(target, natural) {
		return img
	}

	return imaging.Resize(img, int(target.Width), int(target.Height), imaging.Lanczos)
}

func formatForKind(kind imgutil.Kind) (Format, bool) {
	switch kind {
	case imgutil.KindJPEG:
		return FormatJPEG, true
	case imgutil.KindPNG:
		return FormatPNG, true
	case imgutil.KindGIF:
		return FormatGIF, true
	case imgutil.KindWebP:
		return FormatWebP, true
	case imgutil.KindTIFF:
		return FormatTIFF, true
	default:
		return FormatNone, false
	}
}

func pngLevel(params Params) png.CompressionLevel {
	switch {
	case params.Lossless || params.PNG.OptimizationLevel >= 4:
		return png.BestCompression
	case params.PNG.OptimizationLevel == 0:
		return png.BestSpeed
	default:
		return png.DefaultCompression
	}
}

// gifColors maps quality 0-100 onto a palette of 2-256 colours.
func gifColors(quality int) int {
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	return 2 + quality*254/100
}
