package processor

import (
	"github.com/lensferno/imgtool/internal/codec"
	"github.com/lensferno/imgtool/internal/resize"
)

// Config is the immutable run configuration.
type Config struct {
	Input  string
	Output string

	// TargetFormat is codec.FormatNone to keep each file's own format.
	TargetFormat  codec.Format
	Params        codec.Params
	Resize        resize.Directive
	EnlargePolicy resize.EnlargePolicy

	// Prefix and Suffix are only applied when writing into a directory.
	Prefix string
	Suffix string

	ContinueOnError bool
	DeleteOrigin    bool
}

// Job pairs an input file with the path its output is written to.
type Job struct {
	Input  string
	Output string
}

// Op names what the codec was asked to do with a file.
type Op string

const (
	OpCompress Op = "compress"
	OpConvert  Op = "convert"
	// OpFallback is a conversion retried as compression because the source
	// already had the target format.
	OpFallback Op = "compress-fallback"
)

type Result struct {
	Input    string
	Output   string
	Op       Op
	Natural  resize.Dimensions
	Target   resize.Dimensions
	BytesIn  int64
	BytesOut int64
	Err      error
}

// State is the terminal state of a batch run.
type State int

const (
	CompletedOk State = iota
	FailedFast
)

func (s State) String() string {
	if s == FailedFast {
		return "failed-fast"
	}
	return "completed-ok"
}

type Summary struct {
	Total     int
	Processed int
	Errors    int
	BytesIn   int64
	BytesOut  int64
	State     State
}

// BytesSaved is negative when outputs grew.
func (s Summary) BytesSaved() int64 {
	return s.BytesIn - s.BytesOut
}

type ProgressUpdate struct {
	TotalDelta      int
	ProcessedDelta  int
	ErrorDelta      int
	BytesSavedDelta int64
	Current         string
}

// PlanEntry describes what a run would do to one file without doing it.
type PlanEntry struct {
	Input   string            `yaml:"input"`
	Output  string            `yaml:"output"`
	Format  string            `yaml:"format"`
	Op      Op                `yaml:"op"`
	Natural resize.Dimensions `yaml:"natural,omitempty"`
	Target  resize.Dimensions `yaml:"target,omitempty"`
	Error   string            `yaml:"error,omitempty"`
}
