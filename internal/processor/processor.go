package processor

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lensferno/imgtool/internal/codec"
	"github.com/lensferno/imgtool/internal/errors"
	"github.com/lensferno/imgtool/internal/resize"
	"github.com/lensferno/imgtool/pkg/imgutil"
)

var removeFile = os.Remove

// Processor runs one batch over Config.Input. Files are handled one at a
// time in enumeration order.
type Processor struct {
	cfg   Config
	codec codec.Codec
}

func New(cfg Config, c codec.Codec) *Processor {
	return &Processor{cfg: cfg, codec: c}
}

// Run processes every job and returns the per-file results.
//
// Without ContinueOnError the first failing file ends the run in FailedFast
// and its error is returned. With it, failures are logged through the
// context logger (zerolog.Ctx) and the run completes with a nil error.
func (p *Processor) Run(ctx context.Context, updates chan<- ProgressUpdate) (Summary, []Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("component", "processor").Logger()
	summary := Summary{State: CompletedOk}

	jobs, err := p.Jobs(true)
	if err != nil {
		summary.State = FailedFast
		return summary, nil, err
	}

	summary.Total = len(jobs)
	send(updates, ProgressUpdate{TotalDelta: len(jobs)})
	logger.Debug().Int("files", len(jobs)).Str("input", p.cfg.Input).Msg("Starting batch")

	results := make([]Result, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			summary.State = FailedFast
			return summary, results, err
		}

		res := p.ProcessFile(job)
		results = append(results, res)

		if res.Err != nil {
			summary.Errors++
			send(updates, ProgressUpdate{ErrorDelta: 1, Current: job.Input})
			if !p.cfg.ContinueOnError {
				summary.State = FailedFast
				return summary, results, res.Err
			}
			logger.Error().
				Str("path", job.Input).
				Str("code", string(errors.GetErrorCode(res.Err))).
				Err(res.Err).
				Msg("Failed to process file")
			continue
		}

		summary.Processed++
		summary.BytesIn += res.BytesIn
		summary.BytesOut += res.BytesOut
		send(updates, ProgressUpdate{
			ProcessedDelta:  1,
			BytesSavedDelta: res.BytesIn - res.BytesOut,
			Current:         job.Input,
		})
		logger.Info().
			Str("path", job.Input).
			Str("output", res.Output).
			Str("op", string(res.Op)).
			Int64("bytes_in", res.BytesIn).
			Int64("bytes_out", res.BytesOut).
			Msg("Processed file")
	}

	return summary, results, nil
}

// Jobs resolves the input into jobs with their output paths.
//
// A file input writes to Config.Output, or into it when Output is an existing
// directory. A directory input needs a directory output; with createOutputDir
// a missing one is created.
func (p *Processor) Jobs(createOutputDir bool) ([]Job, error) {
	cfg := p.cfg
	info, err := statInput(cfg.Input)
	if err != nil {
		return nil, err
	}
	outInfo, outErr := os.Stat(cfg.Output)

	if !info.IsDir() {
		output := cfg.Output
		if outErr == nil && outInfo.IsDir() {
			output = OutputPath(cfg.Input, cfg.Output, cfg.Prefix, cfg.Suffix)
		}
		return []Job{{Input: cfg.Input, Output: output}}, nil
	}

	switch {
	case outErr == nil && !outInfo.IsDir():
		return nil, errors.Newf(errors.ErrIO, "when input is a dir, output should also be a dir, but given a file: %s", cfg.Output).
			WithDetail("path", cfg.Output)
	case outErr != nil && !os.IsNotExist(outErr):
		return nil, errors.Wrapf(outErr, errors.ErrIO, "stat output %s", cfg.Output).WithDetail("path", cfg.Output)
	case outErr != nil && createOutputDir:
		if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrIO, "create output dir %s", cfg.Output).WithDetail("path", cfg.Output)
		}
	}

	files, err := Enumerate(cfg.Input)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(files))
	for _, file := range files {
		jobs = append(jobs, Job{Input: file, Output: OutputPath(file, cfg.Output, cfg.Prefix, cfg.Suffix)})
	}
	return jobs, nil
}

// ProcessFile reads, resizes, compresses or converts a single file, deletes
// the source when configured, then writes the output. The source is removed
// before the output is written, so a failed delete leaves no output behind.
func (p *Processor) ProcessFile(job Job) Result {
	res := Result{Input: job.Input, Output: job.Output, Op: OpCompress}

	srcInfo, err := os.Stat(job.Input)
	if err != nil {
		res.Err = ioError(err, "stat", job.Input)
		return res
	}
	data, err := os.ReadFile(job.Input)
	if err != nil {
		res.Err = ioError(err, "read", job.Input)
		return res
	}
	res.BytesIn = int64(len(data))

	params := p.cfg.Params
	if p.cfg.Resize.Active() {
		natural, err := p.codec.ProbeSize(data)
		if err != nil {
			res.Err = codecError(err, "probe size of", job.Input)
			return res
		}
		res.Natural = natural
		res.Target = resize.ResolveWithPolicy(p.cfg.Resize, natural, p.cfg.EnlargePolicy)
		params.Width = res.Target.Width
		params.Height = res.Target.Height
		params.DoNotEnlarge = p.cfg.Resize.DoNotEnlarge
	}

	out, op, err := p.encode(data, params)
	res.Op = op
	if err != nil {
		res.Err = codecError(err, string(op), job.Input)
		return res
	}

	if p.cfg.DeleteOrigin {
		if err := removeFile(job.Input); err != nil {
			res.Err = ioError(err, "delete", job.Input)
			return res
		}
	}

	if err := writeOutput(job.Output, out, srcInfo.Mode().Perm()); err != nil {
		res.Err = ioError(err, "write", job.Output)
		return res
	}
	res.BytesOut = int64(len(out))
	return res
}

// encode compresses, or converts when a target format is set. A conversion
// refused with codec.CodeSameFormat is retried as compression of the
// original bytes.
func (p *Processor) encode(data []byte, params codec.Params) ([]byte, Op, error) {
	if !p.cfg.TargetFormat.IsSet() {
		out, err := p.codec.Compress(data, params)
		return out, OpCompress, err
	}

	out, err := p.codec.Convert(data, params, p.cfg.TargetFormat)
	if codec.IsSameFormat(err) {
		out, err = p.codec.Compress(data, params)
		return out, OpFallback, err
	}
	return out, OpConvert, err
}

// Plan reports what Run would do for each job without touching the filesystem.
// Per-file problems are recorded on the entry rather than returned.
func (p *Processor) Plan() ([]PlanEntry, error) {
	jobs, err := p.Jobs(false)
	if err != nil {
		return nil, err
	}

	entries := make([]PlanEntry, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, p.planJob(job))
	}
	return entries, nil
}

func (p *Processor) planJob(job Job) PlanEntry {
	entry := PlanEntry{Input: job.Input, Output: job.Output, Op: OpCompress}

	// Without resizing only the header is needed.
	if !p.cfg.Resize.Active() {
		kind, err := imgutil.SniffFile(job.Input)
		if err != nil && !stderrors.Is(err, imgutil.ErrShortHeader) {
			entry.Error = ioError(err, "read", job.Input).Error()
			return entry
		}
		p.planOp(&entry, kind)
		return entry
	}

	data, err := os.ReadFile(job.Input)
	if err != nil {
		entry.Error = ioError(err, "read", job.Input).Error()
		return entry
	}
	p.planOp(&entry, imgutil.Detect(data))

	natural, err := p.codec.ProbeSize(data)
	if err != nil {
		entry.Error = codecError(err, "probe size of", job.Input).Error()
		return entry
	}
	entry.Natural = natural
	entry.Target = resize.ResolveWithPolicy(p.cfg.Resize, natural, p.cfg.EnlargePolicy)
	return entry
}

func (p *Processor) planOp(entry *PlanEntry, kind imgutil.Kind) {
	entry.Format = kind.String()
	if target := p.cfg.TargetFormat; target.IsSet() {
		entry.Op = OpConvert
		if kind == target.Kind() {
			entry.Op = OpFallback
		}
	}
}

// writeOutput writes through a temp file in the destination directory so a
// failed write never leaves a partial output.
func writeOutput(destPath string, data []byte, perm os.FileMode) error {
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(destDir, "imgtool-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), destPath)
}

func ioError(err error, action, path string) error {
	return errors.Wrapf(err, errors.ErrIO, "%s %s", action, path).WithDetail("path", path)
}

func codecError(err error, action, path string) error {
	return errors.Wrapf(err, errors.ErrCodec, "%s %s", action, path).WithDetail("path", path)
}

func send(updates chan<- ProgressUpdate, update ProgressUpdate) {
	if updates != nil {
		updates <- update
	}
}
