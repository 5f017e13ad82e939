package stream

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatMapIsLazyAndOrdered(t *testing.T) {
	ctx := context.Background()
	var mapped []int
	s := FlatMap(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) Stream[int] {
		mapped = append(mapped, n)
		out := make([]int, n)
		for i := range out {
			out[i] = n
		}
		return FromSlice(out)
	})

	first, ok := s.Next(ctx)
	assert.True(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, []int{1}, mapped)

	assert.Equal(t, []int{2, 2, 3, 3, 3}, Drain(ctx, s))
	assert.Equal(t, []int{1, 2, 3}, mapped)
}

func TestTakeWhileStopsPulling(t *testing.T) {
	ctx := context.Background()
	pulled := 0
	src := Map(FromSlice([]int{1, 2, -1, 3}), func(n int) int {
		pulled++
		return n
	})

	out := Drain(ctx, TakeWhile(src, func(n int) bool { return n > 0 }))

	assert.Equal(t, []int{1, 2}, out)
	assert.Equal(t, 3, pulled)
}

func TestInterruptibleEndsQuietly(t *testing.T) {
	ctx := context.Background()
	var stop atomic.Bool
	s := Interruptible(FromSlice([]string{"a", "b", "c"}), &stop)

	item, ok := s.Next(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a", item)

	stop.Store(true)
	_, ok = s.Next(ctx)
	assert.False(t, ok)
}

func TestInterruptibleObservesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, Drain(ctx, Interruptible(One(1), nil)))
}

func TestEmptyAndOne(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Drain(ctx, Empty[int]()))
	assert.Equal(t, []string{"x"}, Drain(ctx, One("x")))
}
