package stack

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janus-vm/janus/internal/domain"
)

func TestLIFO_PushPop_Ordering(t *testing.T) {
	s := New()
	s.Push(domain.Int(1))
	s.Push(domain.Int(2))
	s.Push(domain.Int(3))
	require.Equal(t, 3, s.Len())

	for want := 3; want >= 1; want-- {
		v, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, domain.Int(int64(want)), v)
	}
	assert.Equal(t, 0, s.Len())
}

func TestLIFO_Pop_Empty(t *testing.T) {
	s := New()
	v, ok := s.Pop()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestDefault_Shared(t *testing.T) {
	d := Default()
	assert.Same(t, Default(), d, "default stack is process-wide")
}

func TestDefault_ConcurrentUseIsSerialized(t *testing.T) {
	d := Default()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Push(domain.Int(7))
		}()
	}
	wg.Wait()

	popped := 0
	for {
		if _, ok := d.Pop(); !ok {
			break
		}
		popped++
	}
	assert.GreaterOrEqual(t, popped, n, "all pushed values must be retained")
}
