// Package jobs runs the asynchronous readiness report pipeline.
//
// A job row moves through loading, drafting, rendering and saving before it
// is completed with the markdown document and its PDF. Any error or panic
// marks the row failed with the message and leaves progress where it was.
// Jobs are not retried or resumed after a restart.
package jobs
