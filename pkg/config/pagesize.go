package config

import "sync/atomic"

// DefaultPageSize is the size of a data page in bytes (4KB).
const DefaultPageSize = 4096

// pageSize is the one piece of process-wide state in the engine. Everything
// else travels through explicit contexts; the page size is isolated here
// behind accessors with test-only mutators.
var pageSize atomic.Int64

func init() {
	pageSize.Store(DefaultPageSize)
}

// PageSize returns the current page size in bytes.
func PageSize() int {
	return int(pageSize.Load())
}

// SetPageSize overrides the page size. Tests only; must not be called while
// any page store is live.
func SetPageSize(n int) {
	if n <= 0 {
		panic("config: page size must be positive")
	}
	pageSize.Store(int64(n))
}

// ResetPageSize restores the default page size. Tests only.
func ResetPageSize() {
	pageSize.Store(DefaultPageSize)
}
