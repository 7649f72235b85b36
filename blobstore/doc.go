// Package blobstore abstracts the storage a shuffle container lives in.
//
// The shuffler needs exactly two access patterns: one sequential
// append-only write of the whole container during the build phase, and
// arbitrarily many concurrent range reads during replay. Store exposes
// both plus deletion of the scratch object.
//
// # Built-in implementations
//
//   - LocalStore: local filesystem, mmap-backed reads
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3, streaming upload and range reads
//   - minio.Store: MinIO and S3-compatible object stores
//
// Implementations must be safe for concurrent use.
package blobstore
