package moderation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerDropsStaleTickets(t *testing.T) {
	var s Sequencer
	first := s.Next()
	second := s.Next()

	assert.False(t, s.Current(first))
	assert.True(t, s.Current(second))
}

func TestSequencerConcurrentIssue(t *testing.T) {
	var s Sequencer
	var wg sync.WaitGroup
	seen := make(chan uint64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- s.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[uint64]bool{}
	current := 0
	for ticket := range seen {
		unique[ticket] = true
		if s.Current(ticket) {
			current++
		}
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, 1, current)
}
