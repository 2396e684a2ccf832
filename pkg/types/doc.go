// Package types defines the schema declarations, entity and collection
// contracts, change notifications, snapshots, and standard error types for
// entrack.
//
// Implementations live in internal packages; pkg/proxy exposes the factory
// for entity contexts and internal/sqlite provides a Committer and Loader.
package types
