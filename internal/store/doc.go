// Package store provides SQLite-backed durable storage for oracle runs.
//
// Every run is kept with the exact command sequence that produced it, so a
// stored run can be replayed against any ledger. The store holds:
//   - Runs: seed, sequence and trace hashes, canonical command JSON
//   - Steps: one record per executed command
//   - Failures: the failure that stopped a run, and that of its shrunk
//     reproduction
//
// Listing order uses the seq column (a logical clock), never timestamps,
// so the same campaign always lists the same way.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Commands are stored as canonical JSON from package trace.
package store
