// Package upload implements the photo upload queue. Each project has one
// pending list drained by at most one loop at a time: uploads run in
// chunks of three with a paced inter-chunk delay, anything that failed
// gets exactly one retry pass with wider spacing, and successful uploads
// are captioned sequentially afterwards. Files enqueued while a drain is
// running are picked up by the same loop, never by a second one.
package upload
