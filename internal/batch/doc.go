// Package batch provides a generic chunked task runner: items run
// concurrently within a fixed-size chunk, chunks run sequentially, and
// every item in a chunk settles before the next chunk starts. The upload
// queue and the generation pipeline both build on it, each with their own
// retry policy layered on top.
package batch
