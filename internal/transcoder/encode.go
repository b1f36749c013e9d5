package transcoder

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	xwebp "golang.org/x/image/webp"

	"optimg/internal/config"
	errs "optimg/internal/errors"
	"optimg/pkg/imgutil"
)

const tempPattern = ".optimg-*.tmp"

// transcodeFile runs one job end to end. The output is committed by rename
// only after the encoded temp file decodes as WebP with the expected size,
// and never once ctx is done.
func transcodeFile(ctx context.Context, job Job, opts Options, gate *commitGate) Result {
	res := Result{Job: job}

	file, err := os.Open(job.Source)
	if err != nil {
		return failed(res, errs.Wrap(errs.KindFile, "open", "open source", err))
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		res.BytesIn = info.Size()
	}

	kind, err := imgutil.SniffReader(file)
	if err != nil {
		return failed(res, errs.Wrap(errs.KindFile, "sniff", "read header", err))
	}
	if !kind.Raster() {
		return failed(res, errs.Newf(errs.KindFile, "sniff", "not a JPEG or PNG image (detected %s)", kind))
	}

	findings, err := inspectMetadata(file, kind)
	if err != nil && opts.Logger != nil {
		opts.Logger.Debug("metadata unreadable", "file", job.RelPath, "err", err)
	}
	res.Findings = findings

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return failed(res, errs.Wrap(errs.KindFile, "seek", "rewind source", err))
	}
	header, _, err := image.DecodeConfig(file)
	if err != nil {
		return failed(res, errs.Wrap(errs.KindFile, "decode", "decode "+kind.String()+" header", err))
	}
	limit := opts.MaxPixels
	if limit <= 0 {
		limit = config.DefaultMaxPixels
	}
	if pixels := int64(header.Width) * int64(header.Height); pixels > int64(limit) {
		return failed(res, errs.Newf(errs.KindFile, "decode", "image is %dx%d, over the %d pixel limit", header.Width, header.Height, limit))
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return failed(res, errs.Wrap(errs.KindFile, "seek", "rewind source", err))
	}
	src, _, err := image.Decode(file)
	if err != nil {
		return failed(res, errs.Wrap(errs.KindFile, "decode", "decode "+kind.String(), err))
	}
	if err := ctx.Err(); err != nil {
		return failed(res, ctxError(err))
	}

	img := orient(src, findings.Orientation)
	res.SrcWidth, res.SrcHeight = img.Bounds().Dx(), img.Bounds().Dy()
	img = fitWidth(img, opts.MaxWidth)
	if opts.Blur > 0 {
		img = imaging.Blur(img, opts.Blur)
	}
	res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()

	if err := ctx.Err(); err != nil {
		return failed(res, ctxError(err))
	}

	destDir := filepath.Dir(job.Output)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return failed(res, errs.Wrap(errs.KindFile, "mkdir", "create "+filepath.Dir(job.OutRel), err))
	}

	size, err := writeWebP(ctx, gate, img, job.Output, opts.Quality, res.Width, res.Height)
	if err != nil {
		return failed(res, err)
	}
	res.BytesOut = size
	res.Status = StatusSucceeded
	return res
}

// fitWidth scales img down to maxWidth keeping its aspect ratio. Images
// already within bounds are returned untouched.
func fitWidth(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}

func writeWebP(ctx context.Context, gate *commitGate, img image.Image, dest string, quality, width, height int) (int64, error) {
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), tempPattern)
	if err != nil {
		return 0, errs.Wrap(errs.KindFile, "write", "create temp file", err)
	}
	defer os.Remove(tmpFile.Name())

	// the encoder replaces quality 0 with its default of 75
	quality = max(quality, 1)
	if err := webp.Encode(tmpFile, img, webp.Options{Quality: quality, Method: 4}); err != nil {
		_ = tmpFile.Close()
		return 0, errs.Wrap(errs.KindFile, "encode", "encode webp", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return 0, errs.Wrap(errs.KindFile, "write", "sync temp file", err)
	}

	if err := verifyWebP(tmpFile, width, height); err != nil {
		_ = tmpFile.Close()
		return 0, err
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return 0, errs.Wrap(errs.KindFile, "write", "chmod temp file", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, errs.Wrap(errs.KindFile, "write", "close temp file", err)
	}

	commit := func() error {
		if err := ctx.Err(); err != nil {
			return ctxError(err)
		}
		return errs.Wrap(errs.KindFile, "write", "commit output", replaceFile(tmpFile.Name(), dest))
	}
	if err := gate.commit(commit); err != nil {
		return 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, errs.Wrap(errs.KindFile, "write", "stat output", err)
	}
	return info.Size(), nil
}

func verifyWebP(f *os.File, width, height int) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errs.Wrap(errs.KindFile, "verify", "rewind output", err)
	}
	cfg, err := xwebp.DecodeConfig(f)
	if err != nil {
		return errs.Wrap(errs.KindFile, "verify", "encoded output is not valid webp", err)
	}
	if cfg.Width != width || cfg.Height != height {
		return errs.Newf(errs.KindFile, "verify", "encoded output is %dx%d, want %dx%d", cfg.Width, cfg.Height, width, height)
	}
	return nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

// commitGate serialises the final rename of a job against its timeout, so a
// job reported as timed out never leaves an output behind. A nil gate
// commits unconditionally.
type commitGate struct {
	mu        sync.Mutex
	closed    bool
	committed bool
}

func (g *commitGate) commit(fn func() error) error {
	if g == nil {
		return fn()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errs.New(errs.KindTimeout, "transcode", "file timeout exceeded")
	}
	if err := fn(); err != nil {
		return err
	}
	g.committed = true
	return nil
}

// close blocks further commits. It returns false when the output was already
// committed.
func (g *commitGate) close() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.committed {
		return false
	}
	g.closed = true
	return true
}

func ctxError(err error) error {
	if err == context.DeadlineExceeded {
		return errs.Wrap(errs.KindTimeout, "transcode", "file timeout exceeded", err)
	}
	return errs.Wrap(errs.KindFile, "transcode", "cancelled", err)
}

func failed(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	return res
}

func describe(res Result) string {
	if res.Err != nil {
		return errs.Message(res.Err)
	}
	if res.Reason != "" {
		return res.Reason
	}
	return fmt.Sprintf("%dx%d", res.Width, res.Height)
}
