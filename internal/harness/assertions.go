package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// checkExpect compares a tick event and the destination tree against
// expect and returns one message per mismatch.
func checkExpect(step int, expect Expect, event TraceEvent, dst string) []string {
	var errs []string
	mismatch := func(field string, got, want []string) {
		errs = append(errs, fmt.Sprintf("step %d: %s = %v, want %v", step, field, got, want))
	}

	if expect.Queued != nil && !slices.Equal(event.Queued, expect.Queued) {
		mismatch("queued", event.Queued, expect.Queued)
	}
	if expect.Unhandled != nil && !slices.Equal(event.Unhandled, expect.Unhandled) {
		mismatch("unhandled", event.Unhandled, expect.Unhandled)
	}
	if expect.Processed != nil && !sameSet(event.Processed, expect.Processed) {
		mismatch("processed", event.Processed, expect.Processed)
	}
	if expect.Failed != nil {
		var failed []string
		for _, f := range event.Failed {
			failed = append(failed, f.Path)
		}
		if !sameSet(failed, expect.Failed) {
			mismatch("failed", failed, expect.Failed)
		}
	}

	for _, rel := range expect.Outputs {
		info, err := os.Stat(filepath.Join(dst, filepath.FromSlash(rel)))
		if err != nil || !info.Mode().IsRegular() {
			errs = append(errs, fmt.Sprintf("step %d: output %s does not exist", step, rel))
		}
	}
	for _, rel := range expect.Missing {
		if _, err := os.Stat(filepath.Join(dst, filepath.FromSlash(rel))); err == nil {
			errs = append(errs, fmt.Sprintf("step %d: output %s exists, want missing", step, rel))
		}
	}
	return errs
}

func sameSet(got, want []string) bool {
	a := slices.Clone(got)
	b := slices.Clone(want)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
