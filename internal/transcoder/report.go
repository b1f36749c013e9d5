package transcoder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
)

func (r *Report) add(res Result) {
	switch res.Status {
	case StatusSucceeded:
		r.Succeeded++
		r.BytesIn += res.BytesIn
		r.BytesOut += res.BytesOut
		if res.Findings.Private() {
			r.MetadataDropped++
		}
		r.Successes = append(r.Successes, Success{
			RelPath:    res.RelPath,
			OutputPath: res.Output,
			Width:      res.Width,
			Height:     res.Height,
			BytesIn:    res.BytesIn,
			BytesOut:   res.BytesOut,
		})
	case StatusSkipped:
		r.Skipped++
		r.Skips = append(r.Skips, Skip{RelPath: res.RelPath, Reason: describe(res)})
	default:
		r.Failed++
		r.Failures = append(r.Failures, Failure{RelPath: res.RelPath, Error: describe(res)})
	}
}

// finish stamps the end time and orders every list by relative path, so two
// runs over the same tree produce the same report apart from times and id.
func (r *Report) finish() {
	r.FinishedAt = time.Now()
	sort.Slice(r.Successes, func(i, j int) bool { return r.Successes[i].RelPath < r.Successes[j].RelPath })
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].RelPath < r.Failures[j].RelPath })
	sort.Slice(r.Skips, func(i, j int) bool { return r.Skips[i].RelPath < r.Skips[j].RelPath })
}

// BytesSaved is positive when outputs are smaller than their sources.
func (r *Report) BytesSaved() int64 {
	return r.BytesIn - r.BytesOut
}

func (r *Report) SummaryLine() string {
	return fmt.Sprintf("%d discovered, %d succeeded, %d failed, %d skipped",
		r.Discovered, r.Succeeded, r.Failed, r.Skipped)
}

// WriteJSON writes the report to path via a temp file and rename.
func (r *Report) WriteJSON(path string) error {
	data, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".optimg-report-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return replaceFile(tmp.Name(), path)
}

// ReadReport loads a report written by WriteJSON.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := sonic.ConfigStd.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
