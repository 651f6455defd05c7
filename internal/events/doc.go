// Package events provides the progress event types published by the upload
// queue and the generation pipeline.
//
// Events carry a project ID and a JSON payload so that handlers have no
// direct dependency on the emitting package. The in-memory emitter fans
// each event out to every registered handler and keeps going when one of
// them fails.
package events
