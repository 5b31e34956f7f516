package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/roach88/assetpipe/internal/processor"
)

// Candidate is a stale file found by a dry-run scan.
type Candidate struct {
	Source      string
	Destination string
	Kind        processor.Kind
}

// ScanReport describes one pass over the source tree.
type ScanReport struct {
	// Tick is the 1-based tick number; zero for a dry run.
	Tick int64

	// Queued holds the items created by this pass.
	Queued []WorkItem

	// Stale holds what would have been queued. Dry runs only.
	Stale []Candidate

	// PriorInFlight is the size of the in-flight set when the pass began.
	PriorInFlight int

	// Skipped counts files passed over because they were in flight.
	Skipped int

	// Unhandled lists files no kind claims, relative to the source root.
	Unhandled []string
}

// scan walks the source tree once. With commit set it mirrors directories
// and queues stale files; otherwise it only collects candidates.
// Callers hold scanMu.
func (e *Engine) scan(ctx context.Context, commit bool) ScanReport {
	snapshot := e.inflight.Snapshot()
	report := ScanReport{PriorInFlight: len(snapshot)}

	if commit {
		e.mirrorDir(e.destRoot)
	}

	w := walker{
		log: e.log,
		visit: func(path string, isDir bool) {
			if isDir {
				if commit {
					if dest, ok := e.mapper.Mirror(path); ok {
						e.mirrorDir(dest)
					}
				}
				return
			}
			e.scanFile(ctx, path, snapshot, commit, &report)
		},
	}
	if err := w.Walk(ctx, e.sourceRoot); err != nil {
		e.log.Warn("scan interrupted", "error", err)
	}
	return report
}

func (e *Engine) scanFile(ctx context.Context, path string, inFlight map[string]struct{}, commit bool, report *ScanReport) {
	if path == e.configPath {
		return
	}

	proc, ok := e.registry.Classify(path)
	if !ok {
		report.Unhandled = append(report.Unhandled, e.relative(path))
		return
	}
	dest, ok := proc.Destination(path)
	if !ok {
		report.Unhandled = append(report.Unhandled, e.relative(path))
		return
	}

	if _, busy := inFlight[path]; busy {
		report.Skipped++
		return
	}
	if !e.oracle.IsStale(path, dest) {
		return
	}

	if !commit {
		report.Stale = append(report.Stale, Candidate{Source: path, Destination: dest, Kind: proc.Kind()})
		return
	}

	unit, ok := e.units[proc.Kind()]
	if !ok {
		report.Unhandled = append(report.Unhandled, e.relative(path))
		return
	}

	item := &WorkItem{
		ID:          e.ids.Generate(),
		Source:      path,
		Destination: dest,
		Kind:        proc.Kind(),
	}
	stamp := func(it *WorkItem) { it.Seq, it.EnqueuedAt = e.seq.stamp(e.now) }
	if !e.inflight.ClaimWith(item, stamp) {
		report.Skipped++
		return
	}
	if err := e.journal.RecordQueued(context.WithoutCancel(ctx), *item); err != nil {
		e.log.Warn("journal write failed", "source", path, "error", err)
	}
	if !unit.Enqueue(item) {
		e.inflight.Retire(path)
		e.log.Warn("unit stopped, item dropped", "source", path, "kind", item.Kind.String())
		return
	}

	e.log.Debug("queued", "source", path, "kind", item.Kind.String(), "seq", item.Seq)
	report.Queued = append(report.Queued, *item)
}

func (e *Engine) mirrorDir(dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.log.Warn("mirror directory failed", "path", dir, "error", err)
	}
}

func (e *Engine) relative(path string) string {
	rel, err := filepath.Rel(e.sourceRoot, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
