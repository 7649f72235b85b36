// Package record provides the tabular data model consumed by the shuffler:
// a Schema describing column names and types, typed Columns, and Batch, an
// immutable bundle of equal-length columns.
//
// Batches carry no row ordering semantics beyond their own column order;
// the shuffler preserves insertion order within a batch and write order
// across groups, nothing more.
package record
