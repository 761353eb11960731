// Package state defines the persistence contract for option group records.
//
// Each option group is persisted as one serialized record named
// `<group>_settings`. A Store only loads, saves and deletes whole records; the
// settings registry owns every merge, validation and default. Saves are
// last-write-wins unless a caller opts into ETag checks through Mutate.
//
// Implementations:
//
//	MemoryStore             in-process map, used by tests and examples
//	gormstore.Store         option_records table (sqlite, mysql, postgres)
//	redisstore.Store        one JSON string per record
package state
