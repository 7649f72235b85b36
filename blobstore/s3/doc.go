// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// Suited to distributed shuffles where workers spill containers to a
// shared bucket and a downstream aggregator replays them with range
// reads. Not the default: a local temp dir is cheaper for single-node
// builds.
package s3
