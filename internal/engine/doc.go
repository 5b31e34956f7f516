// Package engine implements the scan-and-queue loop of the asset pipeline.
//
// Each tick walks the source tree in name order, mirrors every directory
// into the destination tree, and queues each stale file to the Execution
// Unit of the one processor kind that claims its extension.
//
// ARCHITECTURE:
//
// In-Flight Set:
// A source path is claimed when its WorkItem is created and retired when
// the item finishes. Scans skip claimed paths, so a file is never queued
// twice while a previous pass on it is outstanding, however often ticks
// fire.
//
// Execution Units:
// One per kind, each with its own queue and bounded worker pool. Scans only
// read filesystem metadata and never wait on a unit.
//
// Failure policy:
// A failed item is logged, journaled, and retired like a successful one.
// Its destination was never written, so the next tick finds it stale and
// queues it again. Panics in a processor are recovered as item failures.
//
// Ordering:
// Items are stamped with a monotonic seq from a Sequence. Wall-clock
// times are for elapsed-time reporting only.
package engine
