// Package history holds the query helpers shared by the append-only logs:
// ordering, filtering and folding over immutable entries.
package history

import (
	"sort"
	"time"
)

// NewestFirst returns a copy of items sorted by descending timestamp. Ties
// keep their insertion order reversed, so the latest append wins.
func NewestFirst[T any](items []T, at func(T) time.Time) []T {
	out := make([]T, len(items))
	for i := range items {
		out[len(items)-1-i] = items[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return at(out[i]).After(at(out[j]))
	})
	return out
}

// Filter keeps the items matching keep.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Fold reduces items into an accumulator.
func Fold[T, A any](items []T, acc A, step func(A, T) A) A {
	for _, item := range items {
		acc = step(acc, item)
	}
	return acc
}

// Map projects every item through fn, preserving order.
func Map[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
