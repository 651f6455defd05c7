// Package openaicap implements best-effort photo captioning against an
// OpenAI-compatible vision chat model. The captioner receives a presigned
// photo URL and returns one descriptive sentence that later feeds the
// story prompt. Callers treat failures as non-fatal.
package openaicap
