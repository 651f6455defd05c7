// Package storage provides the object storage backend for photo and
// illustration binaries, implemented over a MinIO / S3-compatible bucket.
package storage
