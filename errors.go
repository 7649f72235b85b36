package shufflego

import (
	"errors"
	"fmt"

	"github.com/hupe1980/shufflego/record"
)

var (
	// ErrInvalidFlushSize is returned when flushSize is not positive.
	ErrInvalidFlushSize = errors.New("flush size must be positive")

	// ErrBuilderFinished is returned by Insert and Finish after Finish
	// has already consumed the builder.
	ErrBuilderFinished = errors.New("builder already finished")

	// ErrBuilderFailed is returned after a write to the backing store
	// failed. The backing file state is undefined; the builder is unusable.
	ErrBuilderFailed = errors.New("builder failed: backing store write error")
)

// ErrSchemaMismatch indicates an inserted batch whose schema differs
// from the schema the builder was created with.
type ErrSchemaMismatch struct {
	Expected *record.Schema
	Actual   *record.Schema
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: expected %s, got %s", e.Expected, e.Actual)
}
