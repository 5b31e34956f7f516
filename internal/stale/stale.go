// Package stale decides whether a destination file must be regenerated from
// its source.
//
// Only modification times are compared; content is never hashed. Equal
// timestamps are treated as fresh. On filesystems with coarse timestamp
// resolution (FAT: 2s, some network mounts: 1s) an edit made within the
// same resolution window as the previous output write can go unnoticed
// until the source is touched again.
package stale

import (
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"
)

// StatFunc returns file metadata. os.Stat is used in production; it follows
// symbolic links.
type StatFunc func(name string) (fs.FileInfo, error)

// Oracle compares source and destination timestamps.
// The zero value is not usable; construct with New.
type Oracle struct {
	stat StatFunc
	log  *slog.Logger

	// warned remembers sources whose missing timestamps were already logged.
	mu     sync.Mutex
	warned map[string]struct{}
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithStat overrides the metadata source.
func WithStat(stat StatFunc) Option {
	return func(o *Oracle) {
		o.stat = stat
	}
}

// WithLogger sets the logger used for timestamp anomalies.
func WithLogger(log *slog.Logger) Option {
	return func(o *Oracle) {
		o.log = log
	}
}

// New creates an Oracle backed by os.Stat.
func New(opts ...Option) *Oracle {
	o := &Oracle{
		stat:   os.Stat,
		log:    slog.Default(),
		warned: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsStale reports whether destination must be regenerated from source.
//
//   - destination cannot be stat'd: stale
//   - source cannot be stat'd: stale (the processor reports the real failure)
//   - either side has no usable timestamp: not stale, logged once per source
//   - otherwise: source time strictly after destination time
func (o *Oracle) IsStale(source, destination string) bool {
	srcInfo, err := o.stat(source)
	if err != nil {
		return true
	}
	dstInfo, err := o.stat(destination)
	if err != nil {
		return true
	}

	srcTime, srcOK := ComparisonTime(srcInfo)
	dstTime, dstOK := ComparisonTime(dstInfo)
	if !srcOK || !dstOK {
		o.warnOnce(source, destination)
		return false
	}

	return srcTime.After(dstTime)
}

func (o *Oracle) warnOnce(source, destination string) {
	o.mu.Lock()
	_, seen := o.warned[source]
	o.warned[source] = struct{}{}
	o.mu.Unlock()

	if seen {
		return
	}
	o.log.Error("timestamp unavailable, treating as fresh",
		"source", source,
		"destination", destination,
	)
}

// ComparisonTime returns the modification time of info, falling back to the
// access time when the filesystem reports no modification time.
func ComparisonTime(info fs.FileInfo) (time.Time, bool) {
	if mt := info.ModTime(); !mt.IsZero() {
		return mt, true
	}
	if at, ok := accessTime(info); ok {
		return at, true
	}
	return time.Time{}, false
}

// IsStale is a convenience wrapper using a default Oracle.
func IsStale(source, destination string) bool {
	return defaultOracle().IsStale(source, destination)
}

var (
	defaultOnce sync.Once
	defaultO    *Oracle
)

func defaultOracle() *Oracle {
	defaultOnce.Do(func() {
		defaultO = New()
	})
	return defaultO
}
