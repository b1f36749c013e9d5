package transcoder

import (
	"time"

	"optimg/internal/config"
	"optimg/internal/logging"
)

// TargetExt is the extension every output carries.
const TargetExt = ".webp"

type Options struct {
	// Quality 0 is encoded as 1, the lowest quality the encoder honours.
	Quality  int
	MaxWidth int
	// MaxPixels rejects sources larger than this before decoding; zero
	// means config.DefaultMaxPixels.
	MaxPixels   int
	Formats     []string
	Workers     int
	FileTimeout time.Duration
	OnCollision config.CollisionPolicy
	// Blur is a Gaussian sigma applied after resizing; zero disables it.
	Blur   float64
	Logger *logging.Logger
}

// OptionsFromConfig maps the full-size profile of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Quality:     cfg.Quality,
		MaxWidth:    cfg.MaxWidth,
		MaxPixels:   cfg.MaxPixels,
		Formats:     cfg.Formats,
		Workers:     cfg.Workers,
		FileTimeout: cfg.FileTimeout,
		OnCollision: cfg.OnCollision,
	}
}

// PlaceholderOptions maps the placeholder profile of cfg onto Options.
func PlaceholderOptions(cfg *config.Config) Options {
	opts := OptionsFromConfig(cfg)
	opts.Quality = cfg.Placeholder.Quality
	opts.MaxWidth = cfg.Placeholder.MaxWidth
	opts.Blur = cfg.Placeholder.Blur
	return opts
}

type Job struct {
	Source  string
	RelPath string
	Output  string
	OutRel  string
}

type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

type Result struct {
	Job
	Status    Status
	Err       error
	Reason    string
	SrcWidth  int
	SrcHeight int
	Width     int
	Height    int
	BytesIn   int64
	BytesOut  int64
	Findings  Findings
	Elapsed   time.Duration
}

type Success struct {
	RelPath    string `json:"rel_path"`
	OutputPath string `json:"output_path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	BytesIn    int64  `json:"bytes_in"`
	BytesOut   int64  `json:"bytes_out"`
}

type Failure struct {
	RelPath string `json:"rel_path"`
	Error   string `json:"error"`
}

type Skip struct {
	RelPath string `json:"rel_path"`
	Reason  string `json:"reason"`
}

type Report struct {
	RunID      string    `json:"run_id"`
	SourceRoot string    `json:"source_root"`
	OutputRoot string    `json:"output_root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Discovered int `json:"discovered"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	// MetadataDropped counts sources whose GPS, device or timestamp
	// metadata did not carry over into the re-encoded output.
	MetadataDropped int   `json:"metadata_dropped"`
	BytesIn         int64 `json:"bytes_in"`
	BytesOut        int64 `json:"bytes_out"`

	Successes []Success `json:"successes"`
	Failures  []Failure `json:"failures"`
	Skips     []Skip    `json:"skips,omitempty"`
}

// FileEvent describes one finished job for the console.
type FileEvent struct {
	Status  Status
	RelPath string
	OutRel  string
	Message string
}

type ProgressUpdate struct {
	TotalDelta      int
	ProcessedDelta  int
	ErrorDelta      int
	BytesSavedDelta int64
	Event           *FileEvent
}
