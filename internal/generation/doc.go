// Package generation defines the boundary interfaces to the remote
// generation services (story text, illustrations, photo captions) and the
// error taxonomy the pipeline's retry and failure policies depend on.
// Concrete implementations live in internal/platform.
package generation
