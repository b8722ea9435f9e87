package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Record is one file-like item flowing through the build.
// A nil Contents marks a record without payload (directory markers,
// placeholders) which stages pass through untouched.
type Record struct {
	Path     string      // slash-separated, relative to Base
	Base     string      // directory the record was read from
	Contents []byte      // nil = no payload
	Mode     fs.FileMode // mode read from disk; Perm() is kept on write
}

// IsNull reports whether the record carries no payload.
func (r *Record) IsNull() bool {
	return r == nil || r.Contents == nil
}

// Ext returns the lowercased extension of the record path, dot included.
func (r *Record) Ext() string {
	return strings.ToLower(path.Ext(r.Path))
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Contents != nil {
		c.Contents = append([]byte(nil), r.Contents...)
	}
	return &c
}

// WithContents returns a copy of the record carrying contents.
// The receiver is not modified.
func (r *Record) WithContents(contents []byte) *Record {
	c := *r
	c.Contents = contents
	return &c
}

// WithExt returns a copy of the record whose path has its extension replaced.
func (r *Record) WithExt(ext string) *Record {
	c := *r
	c.Path = strings.TrimSuffix(r.Path, path.Ext(r.Path)) + ext
	return &c
}

// Stage transforms a single record.
// Implementations must not mutate the input record. Returning (nil, nil)
// drops the record from the stream.
type Stage interface {
	Name() string
	Process(ctx context.Context, rec *Record) (*Record, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, rec *Record) (*Record, error)
}

// Name returns the stage name.
func (s StageFunc) Name() string { return s.StageName }

// Process calls the wrapped function.
func (s StageFunc) Process(ctx context.Context, rec *Record) (*Record, error) {
	return s.Fn(ctx, rec)
}

// RecordError identifies the record and stage that failed.
type RecordError struct {
	Path  string
	Stage string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Runner applies stages to records in order, one record at a time.
type Runner struct {
	Stages []Stage

	// SkipErrors drops failed records instead of aborting the run.
	SkipErrors bool

	// OnError is called for every failed record when SkipErrors is set.
	OnError func(err error)
}

// Run processes records through every stage and returns the surviving
// records in input order. With SkipErrors unset, the first failure aborts
// the run. With SkipErrors set, failures are collected and returned joined
// alongside the records that succeeded.
func (r *Runner) Run(ctx context.Context, records []*Record) ([]*Record, error) {
	out := make([]*Record, 0, len(records))
	var errs []error

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		result, err := r.runOne(ctx, rec)
		if err != nil {
			if !r.SkipErrors {
				return out, err
			}
			if r.OnError != nil {
				r.OnError(err)
			}
			errs = append(errs, err)
			continue
		}
		if result != nil {
			out = append(out, result)
		}
	}

	return out, errors.Join(errs...)
}

// runOne pushes a single record through all stages.
func (r *Runner) runOne(ctx context.Context, rec *Record) (*Record, error) {
	cur := rec
	for _, st := range r.Stages {
		next, err := st.Process(ctx, cur)
		if err != nil {
			var recErr *RecordError
			if errors.As(err, &recErr) {
				return nil, err
			}
			return nil, &RecordError{Path: rec.Path, Stage: st.Name(), Err: err}
		}
		if next == nil {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}

// Through runs a stage over a channel of records, handling each record in
// its own turn. Output order matches input order. The output channel is
// closed when the input is drained, the context is canceled, or a stage
// fails; the error channel receives at most one error.
func Through(ctx context.Context, in <-chan *Record, st Stage) (<-chan *Record, <-chan error) {
	out := make(chan *Record)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		for {
			var rec *Record
			var ok bool
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			case rec, ok = <-in:
				if !ok {
					return
				}
			}

			res, err := st.Process(ctx, rec)
			if err != nil {
				errc <- &RecordError{Path: rec.Path, Stage: st.Name(), Err: err}
				return
			}
			if res == nil {
				continue
			}

			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			case out <- res:
			}
		}
	}()

	return out, errc
}

// onlyExt wraps a stage so it only sees records with matching extensions.
type onlyExt struct {
	Stage
	exts map[string]bool
}

// OnlyExt restricts st to records whose extension is one of exts.
// Other records, and null records, pass through unchanged.
func OnlyExt(st Stage, exts ...string) Stage {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[strings.ToLower(e)] = true
	}
	return &onlyExt{Stage: st, exts: m}
}

func (o *onlyExt) Process(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IsNull() || !o.exts[rec.Ext()] {
		return rec, nil
	}
	return o.Stage.Process(ctx, rec)
}
