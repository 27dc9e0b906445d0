// Package idgen provides the generators used for unique token properties.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/maruel/ksid"
)

// Generator produces a fresh opaque token on every call.
type Generator interface {
	New() string
}

// UUID generates UUIDs.
type UUID struct{}

// New generates a time-ordered UUID v7, falling back to v4 if v7 generation
// fails.
func (UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// KSID generates k-sortable identifiers.
type KSID struct{}

// New generates a new KSID.
func (KSID) New() string {
	return ksid.NewID().String()
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Reset resets the counter (for testing).
func (s *Sequential) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}

// Func adapts a plain function to Generator.
type Func func() string

// New calls f.
func (f Func) New() string { return f() }

// Ensure interface compliance.
var (
	_ Generator = UUID{}
	_ Generator = KSID{}
	_ Generator = (*Sequential)(nil)
	_ Generator = Func(nil)
)
