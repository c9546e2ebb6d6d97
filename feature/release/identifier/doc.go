// Package identifier resolves authoring UUIDs into permanent SCTIDs via
// the external component identifier service.
//
// The HTTP client speaks the service's single and bulk protocols: a bulk
// request submits a job, polls it until completion and fetches the
// (uuid, sctid) record list. The Cache layers request batching on top: it
// de-duplicates uuids, coalesces identical in-flight batches, retries
// transient failures with a fixed delay, and polls a cooperative
// cancellation check before every retry so a cancelled build aborts a
// long-running batch early.
//
// One Cache is shared by all file transformations of a build and is safe
// for concurrent use; a uuid is never requested from the service twice.
package identifier
