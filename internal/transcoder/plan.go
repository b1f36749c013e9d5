package transcoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"optimg/internal/config"
	errs "optimg/internal/errors"
)

// PlanResult is the deterministic work list for one batch.
type PlanResult struct {
	SourceRoot string
	OutputRoot string
	Discovered int
	Jobs       []Job
	Failures   []Failure
	Skips      []Skip
	// Collisions maps an output path to every source claiming it.
	Collisions map[string][]string
}

// OutputRel replaces the final extension of rel with TargetExt. Only the last
// extension is touched, so "a.b.JPG" becomes "a.b.webp".
func OutputRel(rel string) string {
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + TargetExt
}

// OutputFor returns where sourceRoot/rel lands under outputRoot.
func OutputFor(outputRoot, rel string) string {
	return filepath.Join(outputRoot, OutputRel(rel))
}

// Plan resolves roots, discovers sources and maps each to its output path
// without writing anything.
func Plan(sourceRoot, outputRoot string, opts Options) (*PlanResult, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	absRoot, err := checkSourceRoot(sourceRoot)
	if err != nil {
		return nil, err
	}
	absOut, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "plan", "resolve output root", err)
	}

	rels, failures, err := discover(absRoot, absOut, opts.Formats)
	if err != nil {
		return nil, err
	}

	plan := &PlanResult{
		SourceRoot: absRoot,
		OutputRoot: absOut,
		Discovered: len(rels),
		Failures:   failures,
	}

	claims := newClaims()
	for _, rel := range rels {
		claims.add(OutputRel(rel), rel)
	}
	plan.Collisions = claims.collisions()

	for _, rel := range rels {
		outRel := OutputRel(rel)
		owner := claims.owner(outRel, opts.OnCollision)
		if owner != rel {
			switch opts.OnCollision {
			case config.CollisionOverwrite:
				plan.Skips = append(plan.Skips, Skip{
					RelPath: rel,
					Reason:  fmt.Sprintf("superseded by %s (both map to %s)", owner, outRel),
				})
			default:
				err := errs.Newf(errs.KindCollision, "plan", "output %s already claimed by %s", outRel, owner)
				plan.Failures = append(plan.Failures, Failure{RelPath: rel, Error: errs.Message(err)})
			}
			continue
		}
		plan.Jobs = append(plan.Jobs, Job{
			Source:  filepath.Join(absRoot, rel),
			RelPath: rel,
			Output:  OutputFor(absOut, rel),
			OutRel:  outRel,
		})
	}

	return plan, nil
}

// claims records, per output path, every source that maps to it in
// discovery (sorted) order.
type claims struct {
	byOutput map[string][]string
}

func newClaims() *claims {
	return &claims{byOutput: make(map[string][]string)}
}

func (c *claims) add(outRel, rel string) {
	c.byOutput[outRel] = append(c.byOutput[outRel], rel)
}

// owner returns the source that gets to write outRel under policy.
func (c *claims) owner(outRel string, policy config.CollisionPolicy) string {
	srcs := c.byOutput[outRel]
	if len(srcs) == 0 {
		return ""
	}
	if policy == config.CollisionOverwrite {
		return srcs[len(srcs)-1]
	}
	return srcs[0]
}

// collisions lists output paths claimed by more than one source.
func (c *claims) collisions() map[string][]string {
	out := make(map[string][]string)
	for k, v := range c.byOutput {
		if len(v) > 1 {
			out[k] = v
		}
	}
	return out
}

func validateOptions(opts Options) error {
	const op = "options"
	if opts.Quality < 0 || opts.Quality > 100 {
		return errs.Newf(errs.KindConfig, op, "quality %d out of range [0,100]", opts.Quality)
	}
	if opts.MaxWidth <= 0 {
		return errs.Newf(errs.KindConfig, op, "max width must be positive, got %d", opts.MaxWidth)
	}
	if opts.MaxPixels < 0 {
		return errs.Newf(errs.KindConfig, op, "max pixels must not be negative, got %d", opts.MaxPixels)
	}
	if len(opts.Formats) == 0 {
		return errs.New(errs.KindConfig, op, "no source formats configured")
	}
	if opts.Blur < 0 {
		return errs.New(errs.KindConfig, op, "blur must not be negative")
	}
	switch opts.OnCollision {
	case "", config.CollisionFail, config.CollisionOverwrite:
	default:
		return errs.Newf(errs.KindConfig, op, "unknown collision policy %q", opts.OnCollision)
	}
	return nil
}

// checkSourceRoot requires an existing, listable directory.
func checkSourceRoot(root string) (string, error) {
	const op = "source"
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errs.Wrap(errs.KindConfig, op, "resolve source root", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errs.Wrap(errs.KindConfig, op, "source root "+root, err)
	}
	if !info.IsDir() {
		return "", errs.Newf(errs.KindConfig, op, "source root %s is not a directory", root)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", errs.Wrap(errs.KindConfig, op, "source root "+root+" is not readable", err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return "", errs.Wrap(errs.KindConfig, op, "source root "+root+" is not readable", err)
	}
	return abs, nil
}
