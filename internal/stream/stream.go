// Package stream implements finite, pull-based sequences. A stream is
// consumed once; after Next reports false it keeps reporting false.
package stream

import (
	"context"
	"sync/atomic"
)

type Stream[T any] interface {
	Next(ctx context.Context) (T, bool)
}

// Func adapts a function to a Stream.
type Func[T any] func(ctx context.Context) (T, bool)

func (f Func[T]) Next(ctx context.Context) (T, bool) { return f(ctx) }

func Empty[T any]() Stream[T] {
	return Func[T](func(context.Context) (T, bool) {
		var zero T
		return zero, false
	})
}

func One[T any](item T) Stream[T] {
	return FromSlice([]T{item})
}

func FromSlice[T any](items []T) Stream[T] {
	i := 0
	return Func[T](func(context.Context) (T, bool) {
		if i >= len(items) {
			var zero T
			return zero, false
		}
		item := items[i]
		i++
		return item, true
	})
}

func Map[T, U any](s Stream[T], fn func(T) U) Stream[U] {
	return Func[U](func(ctx context.Context) (U, bool) {
		item, ok := s.Next(ctx)
		if !ok {
			var zero U
			return zero, false
		}
		return fn(item), true
	})
}

// FlatMap maps every item of s to a sub-stream and yields the sub-streams'
// items in order. fn is only called when the previous sub-stream is spent,
// so mapping stays lazy.
func FlatMap[T, U any](s Stream[T], fn func(context.Context, T) Stream[U]) Stream[U] {
	var current Stream[U]
	return Func[U](func(ctx context.Context) (U, bool) {
		for {
			if current != nil {
				if item, ok := current.Next(ctx); ok {
					return item, true
				}
				current = nil
			}
			next, ok := s.Next(ctx)
			if !ok {
				var zero U
				return zero, false
			}
			current = fn(ctx, next)
		}
	})
}

// TakeWhile yields items until keep returns false. The rejected item is
// dropped and nothing more is pulled from s.
func TakeWhile[T any](s Stream[T], keep func(T) bool) Stream[T] {
	done := false
	return Func[T](func(ctx context.Context) (T, bool) {
		var zero T
		if done {
			return zero, false
		}
		item, ok := s.Next(ctx)
		if !ok || !keep(item) {
			done = true
			return zero, false
		}
		return item, true
	})
}

// Interruptible ends s quietly once stop is set or ctx is done.
func Interruptible[T any](s Stream[T], stop *atomic.Bool) Stream[T] {
	return Func[T](func(ctx context.Context) (T, bool) {
		var zero T
		if (stop != nil && stop.Load()) || ctx.Err() != nil {
			return zero, false
		}
		return s.Next(ctx)
	})
}

// Drain pulls every remaining item of s.
func Drain[T any](ctx context.Context, s Stream[T]) []T {
	var out []T
	for {
		item, ok := s.Next(ctx)
		if !ok {
			return out
		}
		out = append(out, item)
	}
}
