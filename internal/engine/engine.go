package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/assetpipe/internal/config"
	"github.com/roach88/assetpipe/internal/processor"
	"github.com/roach88/assetpipe/internal/stale"
)

// ErrDestinationInsideSource is returned by New when the destination tree
// would be walked as part of the source tree.
var ErrDestinationInsideSource = errors.New("destination must not be inside source")

// Engine owns the in-flight set, drives scans and feeds the Execution Units.
//
// Thread-safety model:
//   - Tick(), Plan(): serialized by scanMu; safe from any goroutine
//   - Run(), RunOnce(): call from one goroutine at a time
//   - InFlight(), Stats(): safe from any goroutine
type Engine struct {
	cfg        config.Config
	sourceRoot string
	destRoot   string
	configPath string

	mapper   processor.Mapper
	registry *processor.Registry
	oracle   *stale.Oracle
	inflight *InFlight
	seq      *Sequence
	ids      IDGenerator
	journal  Journal
	log      *slog.Logger
	now      func() time.Time

	units map[processor.Kind]*Unit
	order []*Unit

	scanMu sync.Mutex
	ticks  atomic.Int64
	queued atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithJournal records queued items and outcomes. Default: no journal.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithRegistry replaces the default raw-then-mesh registry.
func WithRegistry(r *processor.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithNow sets the wall clock used for enqueue and elapsed times.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the work item ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithOracle sets the staleness oracle.
func WithOracle(o *stale.Oracle) Option {
	return func(e *Engine) { e.oracle = o }
}

// WithSequence continues item numbering, typically from ResumeSequence
// over the journal's last seq.
func WithSequence(s *Sequence) Option {
	return func(e *Engine) { e.seq = s }
}

// WithConfigPath sets the file excluded from scans.
// Default: config.toml at the source root.
func WithConfigPath(path string) Option {
	return func(e *Engine) { e.configPath = path }
}

// New creates an Engine for the given trees. Paths are made absolute.
func New(cfg config.Config, sourceRoot, destRoot string, opts ...Option) (*Engine, error) {
	src, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	dst, err := filepath.Abs(destRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve destination root: %w", err)
	}
	if within(src, dst) {
		return nil, fmt.Errorf("%w: %s in %s", ErrDestinationInsideSource, dst, src)
	}

	e := &Engine{
		cfg:        cfg,
		sourceRoot: src,
		destRoot:   dst,
		configPath: filepath.Join(src, config.FileName),
		mapper:     processor.NewMapper(src, dst, cfg.Meshes.Storage),
		inflight:   NewInFlight(),
		seq:        ResumeSequence(0),
		ids:        UUIDv7Generator{},
		journal:    nopJournal{},
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = processor.NewDefaultRegistry(cfg, e.mapper)
	}
	if e.oracle == nil {
		e.oracle = stale.New(stale.WithLogger(e.log))
	}
	if abs, err := filepath.Abs(e.configPath); err == nil {
		e.configPath = abs
	}

	for _, o := range cfg.Overlaps() {
		e.log.Warn("extension claimed by more than one kind", "overlap", o.String())
	}

	e.units = make(map[processor.Kind]*Unit)
	for _, p := range e.registry.Processors() {
		if _, dup := e.units[p.Kind()]; dup {
			continue
		}
		u := newUnit(p, e.inflight, e.journal, e.log, e.now, cfg.Workers)
		e.units[p.Kind()] = u
		e.order = append(e.order, u)
	}

	return e, nil
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Tick performs one scan: mirrors directories and queues stale, unclaimed
// files to their Execution Units.
func (e *Engine) Tick(ctx context.Context) ScanReport {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	report := e.scan(ctx, true)
	report.Tick = e.ticks.Add(1)
	e.queued.Add(int64(len(report.Queued)))

	e.log.Info("tick",
		"tick", report.Tick,
		"queued", len(report.Queued),
		"in_flight", report.PriorInFlight,
		"unhandled", len(report.Unhandled),
	)
	if len(report.Unhandled) > 0 {
		e.log.Debug("unhandled files", "paths", report.Unhandled)
	}
	return report
}

// Plan scans without mirroring or queuing anything.
func (e *Engine) Plan(ctx context.Context) ScanReport {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	return e.scan(ctx, false)
}

// RunOnce ticks once and waits for every queued item to finish.
func (e *Engine) RunOnce(ctx context.Context) (Summary, error) {
	e.Tick(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range e.order {
		u := u
		g.Go(func() error { return u.Drain(gctx) })
	}
	err := g.Wait()
	return e.Stats(), err
}

// Run ticks every poll interval until ctx is cancelled. The first tick
// fires immediately. Each unit dispatches in its own goroutine, so slow
// transforms never delay the next tick.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.PollInterval()
	e.log.Info("pipeline starting",
		"source", e.sourceRoot,
		"destination", e.destRoot,
		"interval", interval.String(),
		"mesh_storage", string(e.cfg.Meshes.Storage),
		"use_meshlets", e.cfg.Meshes.UseMeshlets,
		"texture_filter", string(e.cfg.Textures.Filter),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range e.order {
		u := u
		g.Go(func() error { return u.Run(gctx) })
	}
	g.Go(func() error { return e.poll(gctx, interval) })

	err := g.Wait()
	s := e.Stats()
	e.log.Info("pipeline stopping",
		"ticks", s.Ticks,
		"processed", s.Processed,
		"failed", s.Failed,
	)
	return err
}

func (e *Engine) poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// InFlight returns the un-retired items ordered by seq.
func (e *Engine) InFlight() []WorkItem {
	return e.inflight.Items()
}

// Units returns the Execution Units in registry order.
func (e *Engine) Units() []*Unit {
	return append([]*Unit(nil), e.order...)
}

// SourceRoot returns the absolute source root.
func (e *Engine) SourceRoot() string { return e.sourceRoot }

// DestRoot returns the absolute destination root.
func (e *Engine) DestRoot() string { return e.destRoot }

// Summary holds counters since the engine was created.
type Summary struct {
	Ticks     int64
	Queued    int64
	Processed int64
	Failed    int64
	InFlight  int
}

// Stats returns the current counters.
func (e *Engine) Stats() Summary {
	s := Summary{
		Ticks:    e.ticks.Load(),
		Queued:   e.queued.Load(),
		InFlight: e.inflight.Len(),
	}
	for _, u := range e.order {
		s.Processed += u.processed.Load()
		s.Failed += u.failed.Load()
	}
	return s
}
