// Package transcoder converts a tree of JPEG/PNG images into width-capped
// WebP files under a mirrored output tree. Discovery and planning happen up
// front; transcoding runs on a bounded worker pool; a single collector owns
// the report. A failing file never stops the batch.
package transcoder

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	errs "optimg/internal/errors"
	"optimg/internal/logging"
)

// Run transcodes every accepted image under sourceRoot into outputRoot.
// Only configuration problems and an unusable output root are returned as
// errors; everything else lands in the report. updates may be nil.
func Run(ctx context.Context, sourceRoot, outputRoot string, opts Options, updates chan<- ProgressUpdate) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	started := time.Now()

	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if _, err := checkSourceRoot(sourceRoot); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindRoot, "mkdir", "create output root "+outputRoot, err)
	}

	plan, err := Plan(sourceRoot, outputRoot, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      uuid.NewString(),
		SourceRoot: plan.SourceRoot,
		OutputRoot: plan.OutputRoot,
		StartedAt:  started,
		Discovered: plan.Discovered,
		Successes:  []Success{},
		Failures:   []Failure{},
	}
	opts.Logger.Info("batch planned",
		"run", report.RunID,
		"discovered", plan.Discovered,
		"jobs", len(plan.Jobs),
		"collisions", len(plan.Collisions),
	)

	send := func(u ProgressUpdate) {
		if updates != nil {
			updates <- u
		}
	}
	send(ProgressUpdate{TotalDelta: len(plan.Jobs) + len(plan.Failures) + len(plan.Skips)})

	for _, f := range plan.Failures {
		report.Failed++
		report.Failures = append(report.Failures, f)
		send(ProgressUpdate{ProcessedDelta: 1, ErrorDelta: 1, Event: &FileEvent{Status: StatusFailed, RelPath: f.RelPath, Message: f.Error}})
	}
	for _, s := range plan.Skips {
		report.Skipped++
		report.Skips = append(report.Skips, s)
		send(ProgressUpdate{ProcessedDelta: 1, Event: &FileEvent{Status: StatusSkipped, RelPath: s.RelPath, Message: s.Reason}})
	}

	jobs := make(chan Job)
	results := make(chan Result)

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(plan.Jobs) {
		workers = max(len(plan.Jobs), 1)
	}

	// In-flight transcodes abandoned by a timeout still hold temp files;
	// Run does not return before they unwind.
	var stragglers sync.WaitGroup

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			worker(gctx, jobs, results, opts, &stragglers)
			return nil
		})
	}

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			report.add(res)
			u := ProgressUpdate{
				ProcessedDelta: 1,
				Event:          &FileEvent{Status: res.Status, RelPath: res.RelPath, OutRel: res.OutRel, Message: describe(res)},
			}
			if res.Status == StatusFailed {
				u.ErrorDelta = 1
				opts.Logger.Debug("transcode failed", "file", res.RelPath, "err", res.Err)
			} else {
				u.BytesSavedDelta = res.BytesIn - res.BytesOut
			}
			send(u)
		}
	}()

	g.Go(func() error {
		defer close(jobs)
		for i, job := range plan.Jobs {
			select {
			case jobs <- job:
			case <-gctx.Done():
				for _, rest := range plan.Jobs[i:] {
					results <- cancelled(rest)
				}
				return gctx.Err()
			}
		}
		return nil
	})

	err = g.Wait()
	close(results)
	<-collectorDone
	stragglers.Wait()

	report.finish()
	opts.Logger.Info("batch finished",
		"run", report.RunID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)

	if err != nil && !errors.Is(err, context.Canceled) {
		return report, err
	}
	return report, nil
}

func worker(ctx context.Context, jobs <-chan Job, results chan<- Result, opts Options, stragglers *sync.WaitGroup) {
	for job := range jobs {
		if ctx.Err() != nil {
			results <- cancelled(job)
			continue
		}
		start := time.Now()
		res := runJob(ctx, job, opts, stragglers)
		if res.Status == StatusFailed && errors.Is(res.Err, context.Canceled) {
			res = cancelled(job)
		}
		res.Elapsed = time.Since(start)
		results <- res
	}
}

// cancelled is the result of a job that never started because the batch
// was interrupted.
func cancelled(job Job) Result {
	return Result{Job: job, Status: StatusSkipped, Reason: "cancelled"}
}

// runJob applies the per-file timeout, if any. A timed-out job is reported
// as failed immediately; its goroutine is left to finish and clean up.
func runJob(ctx context.Context, job Job, opts Options, stragglers *sync.WaitGroup) Result {
	if opts.FileTimeout <= 0 {
		return transcodeFile(ctx, job, opts, nil)
	}

	jobCtx, cancel := context.WithTimeout(ctx, opts.FileTimeout)
	defer cancel()

	gate := &commitGate{}
	done := make(chan Result, 1)
	stragglers.Add(1)
	go func() {
		defer stragglers.Done()
		done <- transcodeFile(jobCtx, job, opts, gate)
	}()

	select {
	case res := <-done:
		return res
	case <-jobCtx.Done():
		if !gate.close() {
			return <-done
		}
		return failed(Result{Job: job}, ctxError(jobCtx.Err()))
	}
}
