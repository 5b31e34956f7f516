package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/roach88/assetpipe/internal/config"
	"github.com/roach88/assetpipe/internal/engine"
	"github.com/roach88/assetpipe/internal/processor"
	"github.com/roach88/assetpipe/internal/testutil"
)

// Harness executes one scenario against a real engine over a temporary
// source/destination tree pair.
type Harness struct {
	src, dst string
	engine   *engine.Engine
	registry *processor.Registry
	journal  *recorder
}

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes engine logs to log. Default: discarded.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory. Work item IDs, seqs
// and enqueue times are deterministic, so traces are reproducible.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := scenario.Config.Apply(config.Default())
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	root, err := os.MkdirTemp("", "assetpipe-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario tree: %w", err)
	}
	defer os.RemoveAll(root)

	h := &Harness{
		src:     filepath.Join(root, "assets-dev"),
		dst:     filepath.Join(root, "assets"),
		journal: &recorder{},
	}
	if err := os.MkdirAll(h.src, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create source tree: %w", err)
	}

	h.engine, err = engine.New(cfg, h.src, h.dst,
		engine.WithLogger(o.logger),
		engine.WithNow(testutil.NewFakeClock().Now),
		engine.WithIDGenerator(engine.NewSequentialGenerator(scenario.Name)),
		engine.WithJournal(h.journal),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.registry = processor.NewDefaultRegistry(cfg, processor.NewMapper(h.engine.SourceRoot(), h.engine.DestRoot(), cfg.Meshes.Storage))

	for _, f := range scenario.Files {
		if err := h.writeSource(f, testutil.SourceTime); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.executeStep(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action(), err)
		}
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			for _, msg := range checkExpect(i+1, *step.Expect, event, h.dst) {
				result.AddError(msg)
			}
		}
	}

	outputs, err := testutil.ListTree(h.dst)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	if outputs != nil {
		result.Outputs = outputs
	}

	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, n int, step Step) (TraceEvent, error) {
	event := TraceEvent{Step: n, Action: step.Action()}

	switch event.Action {
	case ActionTick:
		return h.tick(ctx, event)

	case ActionWrite:
		event.Path = step.Write.Path
		return event, h.edit(*step.Write)

	case ActionTouch:
		event.Path = step.Touch
		return event, h.touch(step.Touch)

	case ActionMkdir:
		event.Path = step.Mkdir
		return event, os.MkdirAll(h.source(step.Mkdir), 0o755)

	case ActionRemoveOutput:
		event.Path = step.RemoveOutput
		if step.RemoveOutput == "." {
			return event, os.RemoveAll(h.dst)
		}
		return event, os.RemoveAll(filepath.Join(h.dst, filepath.FromSlash(step.RemoveOutput)))
	}

	return event, fmt.Errorf("unknown action")
}

// tick scans once, then drains every unit so outcomes land in this event.
func (h *Harness) tick(ctx context.Context, event TraceEvent) (TraceEvent, error) {
	report := h.engine.Tick(ctx)
	for _, u := range h.engine.Units() {
		if err := u.Drain(ctx); err != nil {
			return event, err
		}
	}

	event.Tick = report.Tick
	for _, it := range report.Queued {
		event.Queued = append(event.Queued, h.relative(it.Source))
	}
	event.Unhandled = report.Unhandled

	for _, o := range h.journal.take() {
		rel := h.relative(o.Source)
		switch o.Status {
		case engine.StatusDone:
			event.Processed = append(event.Processed, rel)
		case engine.StatusFailed:
			event.Failed = append(event.Failed, Failure{Path: rel, Code: string(o.Code)})
		}
	}
	slices.Sort(event.Processed)
	slices.SortFunc(event.Failed, func(a, b Failure) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return event, nil
}

// edit writes a source file and makes it newer than its output.
func (h *Harness) edit(f FileSpec) error {
	now := time.Now()
	if err := h.writeSource(f, now); err != nil {
		return err
	}
	return h.ageOutput(h.source(f.Path), now)
}

func (h *Harness) touch(rel string) error {
	now := time.Now()
	path := h.source(rel)
	if err := testutil.Touch(path, now); err != nil {
		return err
	}
	return h.ageOutput(path, now)
}

// ageOutput sets the output of source, if any, to just before t. Outputs
// written later by the pipeline are then never older than their source.
func (h *Harness) ageOutput(source string, t time.Time) error {
	proc, ok := h.registry.Classify(source)
	if !ok {
		return nil
	}
	dest, ok := proc.Destination(source)
	if !ok {
		return nil
	}
	if _, err := os.Stat(dest); err != nil {
		return nil
	}
	old := t.Add(-time.Minute)
	return os.Chtimes(dest, old, old)
}

func (h *Harness) writeSource(f FileSpec, mtime time.Time) error {
	content := []byte(f.Content)
	switch f.Mesh {
	case "glb":
		data, err := testutil.TriangleGLB()
		if err != nil {
			return err
		}
		content = data
	case "gltf":
		data, err := testutil.TriangleGLTF()
		if err != nil {
			return err
		}
		content = data
	}
	_, err := testutil.WriteFile(h.src, f.Path, content, mtime)
	return err
}

func (h *Harness) source(rel string) string {
	return filepath.Join(h.src, filepath.FromSlash(rel))
}

func (h *Harness) relative(path string) string {
	rel, err := filepath.Rel(h.engine.SourceRoot(), path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// recorder is an engine.Journal that buffers outcomes until taken.
type recorder struct {
	mu       sync.Mutex
	outcomes []engine.Outcome
}

func (r *recorder) RecordQueued(context.Context, engine.WorkItem) error { return nil }

func (r *recorder) RecordOutcome(_ context.Context, o engine.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recorder) take() []engine.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.outcomes
	r.outcomes = nil
	return out
}
