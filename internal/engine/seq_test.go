package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_ZeroValueStartsAtOne(t *testing.T) {
	var s Sequence
	assert.Equal(t, int64(0), s.Last())
	assert.Equal(t, int64(1), s.Next())
}

func TestSequence_ResumeAfterJournal(t *testing.T) {
	s := ResumeSequence(41)
	assert.Equal(t, int64(41), s.Last())
	assert.Equal(t, int64(42), s.Next())
	assert.Equal(t, int64(43), s.Next())
	assert.Equal(t, int64(43), s.Last())
}

func TestSequence_Stamp(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := ResumeSequence(0)

	seq, when := s.stamp(func() time.Time { return at })
	assert.Equal(t, int64(1), seq)
	assert.Equal(t, at, when)
}

func TestSequence_UniqueUnderContention(t *testing.T) {
	s := ResumeSequence(0)
	const workers, perWorker = 32, 200

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seq := s.Next()
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), s.Last())
}
