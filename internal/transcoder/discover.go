package transcoder

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	errs "optimg/internal/errors"
)

// discover walks absRoot and returns the relative paths of regular
// files whose extension is in formats, sorted. The output subtree is pruned
// when it lives inside the source tree. Unreadable subdirectories become
// failures and are skipped; only an unreadable root is returned as an error.
func discover(absRoot, outputAbs string, formats []string) ([]string, []Failure, error) {
	accepted := make(map[string]bool, len(formats))
	for _, f := range formats {
		accepted[strings.ToLower(f)] = true
	}

	skipOutput := outputAbs != "" && outputAbs != absRoot && isWithin(outputAbs, absRoot)

	var (
		files    []string
		failures []Failure
	)
	fsys := os.DirFS(absRoot)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == "." {
				return walkErr
			}
			failures = append(failures, Failure{
				RelPath: filepath.FromSlash(path),
				Error:   errs.Message(errs.Wrap(errs.KindFile, "discover", "read directory", walkErr)),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skipOutput && path != "." && isWithin(filepath.Join(absRoot, path), outputAbs) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if accepted[strings.ToLower(filepath.Ext(path))] {
			files = append(files, filepath.FromSlash(path))
		}
		return nil
	})
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindConfig, "discover", "read source root", err)
	}

	sort.Strings(files)
	return files, failures, nil
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
