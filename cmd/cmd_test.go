package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lensferno/imgtool/internal/errors"
	"github.com/lensferno/imgtool/internal/processor"
	"github.com/lensferno/imgtool/pkg/imgutil"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(dir, "system"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	isolateConfig(t)

	var outBuf, errBuf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 5), B: 0x99, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestCompressDirectory(t *testing.T) {
	root := t.TempDir()
	in, out := filepath.Join(root, "in"), filepath.Join(root, "out")
	writeTestPNG(t, filepath.Join(in, "a.png"), 100, 50)
	writeTestPNG(t, filepath.Join(in, "b.png"), 30, 60)

	stdout, _, err := runCLI(t, "compress", in, "-o", out, "-t", "jpg", "-s", "_sm", "--resize", "short_edge:edge_size=20")
	require.NoError(t, err)
	assert.Contains(t, stdout, "completed-ok")
	assert.Contains(t, stdout, "Output written to:")

	for name, want := range map[string][2]int{"a_sm.png": {40, 20}, "b_sm.png": {20, 40}} {
		f, err := os.Open(filepath.Join(out, name))
		require.NoError(t, err, name)
		cfg, format, err := image.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, name)
		assert.Equal(t, "jpeg", format, name)
		assert.Equal(t, want[0], cfg.Width, name)
		assert.Equal(t, want[1], cfg.Height, name)
	}
}

func TestCompressContinueOnError(t *testing.T) {
	root := t.TempDir()
	in, out := filepath.Join(root, "in"), filepath.Join(root, "out")
	writeTestPNG(t, filepath.Join(in, "a.png"), 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.png"), []byte("garbage"), 0o644))
	writeTestPNG(t, filepath.Join(in, "c.png"), 10, 10)

	stdout, stderr, err := runCLI(t, "compress", in, "-o", out, "--continue-on-error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "completed-ok")
	assert.Contains(t, stderr, "Failed to process file")
	assert.Contains(t, stderr, filepath.Join(in, "b.png"))
	assert.FileExists(t, filepath.Join(out, "a.png"))
	assert.FileExists(t, filepath.Join(out, "c.png"))
	assert.NoFileExists(t, filepath.Join(out, "b.png"))
}

func TestCompressFailFast(t *testing.T) {
	root := t.TempDir()
	in, out := filepath.Join(root, "in"), filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.png"), []byte("garbage"), 0o644))
	writeTestPNG(t, filepath.Join(in, "b.png"), 10, 10)

	stdout, _, err := runCLI(t, "compress", in, "-o", out)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodec))
	assert.Contains(t, stdout, "failed-fast")
	assert.NoFileExists(t, filepath.Join(out, "b.png"))
}

func TestCompressConfigErrorTouchesNothing(t *testing.T) {
	root := t.TempDir()
	in, out := filepath.Join(root, "in"), filepath.Join(root, "out")
	writeTestPNG(t, filepath.Join(in, "a.png"), 10, 10)

	_, _, err := runCLI(t, "compress", in, "-o", out, "--jpeg-quality", "0")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
	assert.NoDirExists(t, out)

	_, _, err = runCLI(t, "compress", in, "-o", out, "--resize", "size:w=10")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
	assert.NoDirExists(t, out)
}

func TestCompressMissingOutputFlag(t *testing.T) {
	_, _, err := runCLI(t, "compress", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}

func TestCompressDryRunYAML(t *testing.T) {
	root := t.TempDir()
	in, out := filepath.Join(root, "in"), filepath.Join(root, "out")
	writeTestPNG(t, filepath.Join(in, "a.png"), 200, 100)

	stdout, _, err := runCLI(t, "compress", in, "-o", out, "--dry-run", "--plan-format", "yaml",
		"-t", "png", "--resize", "scale:ratio=0.5")
	require.NoError(t, err)
	assert.NoDirExists(t, out)

	var entries []processor.PlanEntry
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, processor.OpFallback, entries[0].Op)
	assert.Equal(t, "png", entries[0].Format)
	assert.Equal(t, uint32(100), entries[0].Target.Width)
	assert.Equal(t, uint32(50), entries[0].Target.Height)
	assert.Equal(t, filepath.Join(out, "a.png"), entries[0].Output)
}

func TestCompressDryRunTable(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "a.png")
	writeTestPNG(t, input, 20, 20)

	stdout, _, err := runCLI(t, "compress", input, "-o", filepath.Join(root, "b.png"), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, input)
	assert.Contains(t, stdout, "compress")
	assert.NoFileExists(t, filepath.Join(root, "b.png"))
}

func TestCompressUsesConfigFile(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "in", "photo.png")
	out := filepath.Join(root, "out")
	writeTestPNG(t, input, 10, 10)
	require.NoError(t, os.MkdirAll(out, 0o755))

	cfgPath := filepath.Join(root, "imgtool.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("prefix = \"cfg_\"\nsuffix = \"_file\"\n"), 0o644))

	// An explicit flag beats the file; the unset prefix flag does not.
	_, _, err := runCLI(t, "compress", input, "-o", out, "--config", cfgPath, "-s", "_flag")
	require.NoError(t, err)

	kind, err := imgutil.SniffFile(filepath.Join(out, "cfg_photo_flag.png"))
	require.NoError(t, err)
	assert.Equal(t, imgutil.KindPNG, kind)
}

func TestCompressDeleteOrigin(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "a.png")
	writeTestPNG(t, input, 10, 10)

	_, _, err := runCLI(t, "compress", input, "-o", filepath.Join(root, "b.png"), "--delete-origin")
	require.NoError(t, err)
	assert.NoFileExists(t, input)
	assert.FileExists(t, filepath.Join(root, "b.png"))
}

func TestCompressSkipIfBiggerWarns(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "a.png")
	writeTestPNG(t, input, 10, 10)

	_, stderr, err := runCLI(t, "compress", input, "-o", filepath.Join(root, "b.png"), "--skip-if-bigger")
	require.NoError(t, err)
	assert.Contains(t, stderr, "skip_if_bigger")
}

func TestInspect(t *testing.T) {
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "a.png"), 64, 32)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644))

	stdout, _, err := runCLI(t, "inspect", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(root, "a.png"))
	assert.Contains(t, stdout, "png")
	assert.Contains(t, stdout, "64x32")
	assert.Contains(t, stdout, filepath.Join(root, "notes.txt"))
	assert.Contains(t, stdout, "unknown")
}

func TestInspectMissingPath(t *testing.T) {
	_, _, err := runCLI(t, "inspect", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, errors.New(errors.ErrConfig, "jpeg quality must be within 1-100"))
	assert.Contains(t, buf.String(), "[CONFIG_INVALID] jpeg quality")
	assert.Contains(t, buf.String(), "--help")

	buf.Reset()
	reportError(&buf, errors.New(errors.ErrNotFound, "file or dir does not exist: x"))
	assert.Contains(t, buf.String(), "NOT_FOUND")
	assert.NotContains(t, buf.String(), "--help")
}
