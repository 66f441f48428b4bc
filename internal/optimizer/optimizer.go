// Package optimizer sequences one optimization run over a compiled resource
// package: extract, decode the resource table, collapse duplicate resource
// files, rename resource keys, re-encode, repack and report.
//
// The original archive is replaced only by the final atomic rename of a fully
// written replacement. The working directory is removed on every exit path.
package optimizer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"resopt/internal/arsc"
	"resopt/internal/backup"
	"resopt/internal/config"
	"resopt/internal/dedup"
	"resopt/internal/diff"
	"resopt/internal/digest"
	"resopt/internal/keyname"
	"resopt/internal/logging"
	"resopt/internal/report"
	"resopt/internal/sortutil"
	"resopt/internal/validate"
	"resopt/internal/walkwalk"
	"resopt/internal/ziputil"
)

const (
	tableName = "resources.arsc"
	resDir    = "res"
)

// Result is what a run reports back, on success and on failure alike.
type Result struct {
	State        State
	Changed      bool // the archive was replaced
	BytesRemoved int64
	Elapsed      time.Duration
	ReportDir    string
	Summary      *report.Summary
}

// Optimizer runs the configured passes. It holds no per-run state, so one
// Optimizer may serve several independent runs.
type Optimizer struct {
	cfg       config.Config
	log       *logging.Logger
	variant   string
	whitelist *keyname.Whitelist
	scheme    digest.Scheme
	codec     backup.Codec
	now       func() time.Time
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithVariant tags the run with a build variant, used as the first segment
// of the per-run report subdirectory.
func WithVariant(v string) Option { return func(o *Optimizer) { o.variant = v } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *Optimizer) { o.now = now } }

// New validates cfg and prepares an Optimizer.
func New(cfg config.Config, log *logging.Logger, opts ...Option) (*Optimizer, error) {
	if err := validate.Config(cfg); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}
	wl, err := keyname.Compile(cfg.ResNameOptWhiteRegexList)
	if err != nil {
		return nil, err
	}
	scheme, err := digest.Parse(cfg.Digest)
	if err != nil {
		return nil, err
	}
	codec, err := backup.ParseCodec(cfg.BackupCodec)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	o := &Optimizer{
		cfg:       cfg.Clone(),
		log:       log,
		whitelist: wl,
		scheme:    scheme,
		codec:     codec,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// run carries the state of one invocation.
type run struct {
	*Optimizer
	archive string
	workDir string
	res     *Result
	diffs   map[string]string // report file name -> patch body
}

// Run optimizes the archive at archivePath in place. The returned Result is
// never nil; on failure it carries the statistics gathered so far and the
// error is an *Error.
func (o *Optimizer) Run(archivePath string) (res *Result, err error) {
	start := o.now()
	res = &Result{
		State:   Idle,
		Summary: &report.Summary{Archive: archivePath, Variant: o.variant, Started: start.UTC()},
	}
	res.ReportDir = o.reportDir(archivePath, start)
	r := &run{Optimizer: o, archive: archivePath, res: res, diffs: map[string]string{}}

	defer func() {
		if p := recover(); p != nil {
			err = &Error{Kind: Internal, Op: "run", Err: fmt.Errorf("panic: %v\n%s", p, debug.Stack())}
		}
		if r.workDir != "" {
			if rmErr := os.RemoveAll(r.workDir); rmErr != nil {
				o.log.Warnf("remove work dir %s: %v", r.workDir, rmErr)
			}
		}
		if err != nil {
			e := classify("run", err)
			err = e
			res.State = Failed
			res.Changed = false
			res.Summary.Error = e.Error()
			o.log.Errorf("optimization of %s failed (%s): %v", archivePath, e.Kind, e.Err)
		}
		res.Elapsed = o.now().Sub(start)
		r.finish(err)
	}()

	err = r.execute()
	return res, err
}

func (r *run) execute() error {
	info, err := os.Stat(r.archive)
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", r.archive)
		}
		return &Error{Kind: MissingInput, Op: "stat archive", Err: err}
	}

	r.workDir, err = os.MkdirTemp("", "resopt-")
	if err != nil {
		return &Error{Kind: Internal, Op: "create work dir", Err: err}
	}
	manifest, err := ziputil.Extract(r.archive, r.workDir)
	if err != nil {
		return &Error{Kind: Extraction, Op: "extract", Err: err}
	}
	r.res.State = Extracted
	r.log.Debugf("extracted %d entries from %s into %s", len(manifest.Entries), r.archive, r.workDir)

	if !r.cfg.AnyEnabled() {
		r.log.Infof("all optimizations disabled; %s left unchanged", r.archive)
		r.res.State = Finalized
		return nil
	}

	tablePath := filepath.Join(r.workDir, tableName)
	data, err := os.ReadFile(tablePath)
	if errors.Is(err, fs.ErrNotExist) {
		return &Error{Kind: MissingInput, Op: "read table", Err: fmt.Errorf("%s has no %s", r.archive, tableName)}
	}
	if err != nil {
		return &Error{Kind: Internal, Op: "read table", Err: err}
	}
	if err := validate.Manifest(manifest); err != nil {
		return &Error{Kind: Extraction, Op: "validate entries", Err: err}
	}
	table, err := arsc.Decode(data)
	if err != nil {
		return &Error{Kind: MalformedTable, Op: "decode table", Err: err}
	}
	r.res.State = TableDecoded

	changed := false
	if r.cfg.RepeatResOptEnable {
		n, err := r.collapseDuplicates(table, manifest)
		if err != nil {
			return err
		}
		changed = changed || n > 0
		r.res.State = Deduped
	}
	if r.cfg.ResNameOptEnable {
		n, err := r.rename(table)
		if err != nil {
			return err
		}
		changed = changed || n > 0
		r.res.State = Renamed
	}

	if !changed {
		r.log.Infof("nothing to optimize in %s", r.archive)
		r.res.State = Finalized
		return nil
	}

	out, err := arsc.Encode(table)
	if err != nil {
		return &Error{Kind: Internal, Op: "encode table", Err: err}
	}
	if err := os.WriteFile(tablePath, out, 0o644); err != nil {
		return &Error{Kind: Internal, Op: "write table", Err: err}
	}
	r.res.State = TableEncoded
	r.log.Debugf("encoded table: %d -> %d bytes", len(data), len(out))

	st, err := ziputil.Repack(r.workDir, manifest, r.archive, ziputil.Options{DeflateLevel: r.cfg.DeflateLevel})
	if err != nil {
		return &Error{Kind: Repack, Op: "repack", Err: err}
	}
	r.res.State = Repackaged
	r.res.Changed = true
	r.log.Debugf("repacked %s: written=%d dropped=%d added=%d", r.archive, st.Written, st.Dropped, st.Added)

	r.res.State = Finalized
	return nil
}

// collapseDuplicates removes duplicate files under res/ and returns how many
// were removed.
func (r *run) collapseDuplicates(table *arsc.Table, manifest *ziputil.Manifest) (int, error) {
	pool := table.StringPool()
	if pool == nil {
		return 0, &Error{Kind: MalformedTable, Op: "dedup", Err: errors.New("table has no global string pool")}
	}
	files, err := walkwalk.CollectFiles(r.workDir, resDir)
	if errors.Is(err, fs.ErrNotExist) {
		r.log.Warnf("%s has no %s directory; skipping duplicate removal", r.archive, resDir)
		return 0, nil
	}
	if err != nil {
		return 0, &Error{Kind: Internal, Op: "scan res", Err: err}
	}
	groups, err := dedup.Detect(files, manifest, r.scheme)
	if err != nil {
		return 0, &Error{Kind: Internal, Op: "detect duplicates", Err: err}
	}
	if len(groups) == 0 {
		return 0, nil
	}

	refs, err := table.StringRefs()
	if err != nil {
		return 0, &Error{Kind: MalformedTable, Op: "scan values", Err: err}
	}
	store := backup.New(r.res.ReportDir, r.codec)
	outs, _, err := dedup.ApplyAll(pool, groups, store.Save)
	removed := r.record(outs, refs)
	if err != nil {
		return removed, &Error{Kind: Internal, Op: "apply duplicates", Err: err}
	}
	return removed, nil
}

func (r *run) record(outs []dedup.Outcome, refs map[uint32]int) int {
	sum := r.res.Summary
	removed := 0
	redirected := map[int]struct{}{}
	for _, o := range outs {
		g := report.Group{Retained: o.Retained, Digest: o.Digest, Bytes: o.Bytes}
		for _, rm := range o.Removed {
			g.Removed = append(g.Removed, report.Removed{Path: rm.Path, Size: rm.Size, Indices: rm.Indices, Backup: rm.Backup})
			removed++
			for _, i := range rm.Indices {
				redirected[i] = struct{}{}
			}
		}
		sum.Groups = append(sum.Groups, g)
		sum.BytesRemoved += o.Bytes
	}
	for _, i := range sortutil.SortedKeys(redirected) {
		sum.RedirectRefs += refs[uint32(i)]
	}
	r.res.BytesRemoved = sum.BytesRemoved
	return removed
}

// rename replaces key names in every package and returns how many changed.
func (r *run) rename(table *arsc.Table) (int, error) {
	total := 0
	for _, pkg := range table.Packages() {
		res, err := keyname.Rewrite(pkg.KeyStrings, r.whitelist, r.cfg.ResNameOptPlaceholder)
		if err != nil {
			return total, &Error{Kind: Internal, Op: "rename keys of " + pkg.Name, Err: err}
		}
		total += res.Renamed

		rp := report.Package{Name: pkg.Name, ID: pkg.ID, Keys: pkg.KeyStrings.Len(), Renamed: res.Renamed}
		if res.Renamed > 0 {
			name := fmt.Sprintf("keys-%s-%02x.diff", safeName(pkg.Name), pkg.ID)
			body, _ := diff.Strings("a/"+pkg.Name+"/keys", "b/"+pkg.Name+"/keys", res.Before, res.After, diff.Options{Context: 2})
			r.diffs[name] = body
			rp.Diff = name
		}
		r.res.Summary.Packages = append(r.res.Summary.Packages, rp)
		for _, h := range res.Kept {
			r.res.Summary.Whitelisted = append(r.res.Summary.Whitelisted, report.Whitelisted{Package: pkg.Name, Key: h.Key, Pattern: h.Pattern})
		}
		r.log.Debugf("package %s (0x%02x): renamed %d of %d keys", pkg.Name, pkg.ID, res.Renamed, pkg.KeyStrings.Len())
	}
	return total, nil
}

// finish fills the summary, mirrors it to the log and writes the report
// files. Report failures are logged and never change the run outcome.
func (r *run) finish(runErr error) {
	sum := r.res.Summary
	sum.State = r.res.State.String()
	sum.Changed = r.res.Changed
	sum.ElapsedMs = r.res.Elapsed.Milliseconds()

	for _, line := range sum.Lines() {
		r.log.Infof("%s", line)
	}
	if errors.Is(runErr, ErrMissingInput) {
		return
	}
	for _, name := range sortutil.SortedKeys(r.diffs) {
		if _, err := report.WriteDiff(r.res.ReportDir, name, r.diffs[name]); err != nil {
			r.log.Warnf("write %s: %v", name, err)
		}
	}
	if _, err := report.WriteText(r.res.ReportDir, sum); err != nil {
		r.log.Warnf("write %s: %v", report.TextFileName, err)
	}
	if _, err := report.WriteJSON(r.res.ReportDir, sum); err != nil {
		r.log.Warnf("write %s: %v", report.JSONFileName, err)
	}
}

func (o *Optimizer) reportDir(archive string, start time.Time) string {
	base := o.cfg.ReportDir
	if base == "" {
		base = filepath.Join(filepath.Dir(archive), report.DefaultDirName)
	}
	return report.Dir(base, o.variant, start)
}

func safeName(s string) string {
	if s == "" {
		return "package"
	}
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
			return c
		}
		return '_'
	}, s)
}
