// Package store defines the persistence interfaces for the storybook
// domain entities, a DBTX abstraction over *sql.DB / *sql.Tx, shared
// sentinel errors and a transaction helper. Concrete implementations live
// in internal/platform/postgres.
package store
