package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/assetpipe/internal/processor"
)

// Unit is the Execution Unit for one processor kind. It owns a FIFO of
// work items and a bounded worker pool, so a hung transform stalls only
// its own kind.
//
// Every item is retired when it finishes, success or failure. A failed
// source is therefore picked up again by the next stale scan.
type Unit struct {
	proc     processor.Processor
	queue    *workQueue
	inflight *InFlight
	journal  Journal
	log      *slog.Logger
	now      func() time.Time
	workers  int

	processed atomic.Int64
	failed    atomic.Int64
}

func newUnit(proc processor.Processor, inflight *InFlight, journal Journal, log *slog.Logger, now func() time.Time, workers int) *Unit {
	return &Unit{
		proc:     proc,
		queue:    newWorkQueue(),
		inflight: inflight,
		journal:  journal,
		log:      log.With("kind", proc.Kind().String()),
		now:      now,
		workers:  max(workers, 1),
	}
}

// Kind returns the processor kind this unit executes.
func (u *Unit) Kind() processor.Kind {
	return u.proc.Kind()
}

// Enqueue hands an item to the unit. Returns false once the unit has stopped.
func (u *Unit) Enqueue(item *WorkItem) bool {
	return u.queue.Enqueue(item)
}

// Pending returns the number of items waiting for a worker.
func (u *Unit) Pending() int {
	return u.queue.Len()
}

// Drain processes every queued item and waits for them to finish.
func (u *Unit) Drain(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(u.workers)

	for ctx.Err() == nil {
		item, ok := u.queue.TryDequeue()
		if !ok {
			break
		}
		g.Go(func() error {
			u.process(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		u.abandon()
		return err
	}
	return nil
}

// Run dispatches items as they arrive until ctx is cancelled. Running
// transforms are allowed to finish; items still queued are released.
func (u *Unit) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(u.workers)

	for {
		for {
			item, ok := u.queue.TryDequeue()
			if !ok {
				break
			}
			// Blocks while every worker is busy.
			g.Go(func() error {
				u.process(ctx, item)
				return nil
			})
		}

		select {
		case <-ctx.Done():
			_ = g.Wait()
			u.queue.Close()
			u.abandon()
			return ctx.Err()
		case <-u.queue.Wait():
		}
	}
}

func (u *Unit) process(ctx context.Context, item *WorkItem) {
	n, err := u.execute(ctx, item)
	elapsed := u.now().Sub(item.EnqueuedAt)

	outcome := Outcome{
		ItemID:  item.ID,
		Seq:     item.Seq,
		Source:  item.Source,
		Kind:    item.Kind,
		Bytes:   n,
		Elapsed: elapsed,
	}

	if err != nil {
		outcome.Status = StatusFailed
		outcome.Code, _ = processor.ErrorCodeOf(err)
		outcome.Err = err.Error()
		u.failed.Add(1)
		u.log.Error("process failed",
			"source", item.Source,
			"error", err,
		)
	} else {
		outcome.Status = StatusDone
		u.processed.Add(1)
		u.log.Info("processed",
			"source", item.Source,
			"destination", item.Destination,
			"elapsed", elapsed.Round(time.Millisecond).String(),
			"size", humanize.Bytes(uint64(max(n, 0))),
		)
	}

	if jerr := u.journal.RecordOutcome(context.WithoutCancel(ctx), outcome); jerr != nil {
		u.log.Warn("journal write failed", "source", item.Source, "error", jerr)
	}
	u.inflight.Retire(item.Source)
}

// execute runs the transform, converting a panic into an item failure.
func (u *Unit) execute(ctx context.Context, item *WorkItem) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = processor.NewError(processor.ErrCodePanic, item.Kind, item.Source, fmt.Errorf("panic: %v", r))
		}
	}()
	return u.proc.Execute(ctx, item.Source, item.Destination)
}

// abandon releases queued items that will not run, journaling each as
// abandoned so the next run does not report it as interrupted.
func (u *Unit) abandon() {
	for {
		item, ok := u.queue.TryDequeue()
		if !ok {
			return
		}
		outcome := Outcome{
			ItemID: item.ID,
			Seq:    item.Seq,
			Source: item.Source,
			Kind:   item.Kind,
			Status: StatusAbandoned,
			Err:    "released at shutdown",
		}
		if err := u.journal.RecordOutcome(context.Background(), outcome); err != nil {
			u.log.Warn("journal write failed", "source", item.Source, "error", err)
		}
		u.inflight.Retire(item.Source)
		u.log.Debug("released unprocessed item", "source", item.Source)
	}
}
