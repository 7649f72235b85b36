// Package container implements the append-only group container backing a
// shuffle: a single blob holding record-batch groups from many partition
// keys, written once sequentially and replayed by group-id predicate.
//
// Layout:
//
//	[header: magic, version, flags, schema]
//	[group 0][group 1] ... [group n-1]
//	[footer: group directory][trailer: footer length + magic]
//
// Group ids are assigned by write order, zero-based and contiguous. The
// footer directory records each group's byte range so replay can seek
// straight to the selected groups and never materialize the rest.
package container
