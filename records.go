package mailbuild

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// Record is one file-like item flowing through a Runner.
type Record = pipeline.Record

// Stage transforms a single record.
type Stage = pipeline.Stage

// Runner applies stages to records in order.
type Runner = pipeline.Runner

// RecordError names the record and stage that failed.
type RecordError = pipeline.RecordError

// LoadRecords reads the files under root matching any of the patterns.
// Matching directories become records without payload, so stages pass
// them through. Records are sorted by path.
func LoadRecords(root string, patterns ...string) ([]*Record, error) {
	matches, err := fileutil.Glob(root, patterns...)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(matches))
	for _, rel := range matches {
		full := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}

		rec := &Record{Path: rel, Base: root, Mode: info.Mode()}
		if !info.IsDir() {
			rec.Contents, err = os.ReadFile(full) // #nosec G304 -- path comes from a glob rooted at root
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", rel, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes every record with a payload to dir at its path and
// creates a directory for every directory marker. Files keep the record's
// permission bits plus owner write, or fileutil.FilePermissions when it has none. Returns
// the written file paths in record order.
func WriteRecords(dir string, records []*Record) ([]string, error) {
	var written []string
	var errs []error

	for _, rec := range records {
		if rec.IsNull() {
			if rec != nil && rec.Mode.IsDir() {
				if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(rec.Path)), fileutil.DirPermissions); err != nil {
					errs = append(errs, fmt.Errorf("creating %s: %w", rec.Path, err))
				}
			}
			continue
		}
		perm := rec.Mode.Perm()
		if perm != 0 {
			perm |= 0o200 // a later build must be able to overwrite it
		}
		path, err := fileutil.WriteFileMode(dir, rec.Path, rec.Contents, perm)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}
