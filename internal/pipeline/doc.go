// Package pipeline implements the generation state machine that turns an
// interview transcript into an illustrated book: loading, story,
// illustrations, then done or failed. A run's state is always derived
// from persisted pages and illustration counts, never from a stored job
// record, which is what makes every run resumable after a restart. The
// Manager enforces one run per project and exposes the stop, skip and
// retry controls; the Scheduler tops up illustration variants in the
// background after the main run completes.
package pipeline
