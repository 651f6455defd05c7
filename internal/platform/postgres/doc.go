// Package postgres provides PostgreSQL implementations of the store
// interfaces, plus a LISTEN/NOTIFY-backed change listener for the
// at-least-once change-notification stream.
package postgres
