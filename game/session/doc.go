// Package session provides session management and storage for the block grid game.
//
// Manager keeps live sessions in memory, keyed case-insensitively by a short
// random ID, and writes through to an optional SessionPersistence:
//
//   - FilePersistence: one indented JSON file per session
//   - SQLitePersistence: a sessions table in SQLite (mattn/go-sqlite3)
//   - PostgresPersistence: the same table in PostgreSQL (jackc/pgx)
//
// Every backend stores the engine snapshot plus the config ID and seed, and
// rebuilds the engine from the config on load. The SQL backends compress the
// snapshot with zstd. Running animations are not stored.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", "classic", config)
//
// Cleanup:
//
// CleanupExpiredSessions drops sessions idle past a cutoff from memory, and
// PruneOrphans drops sessions whose stored copy was removed out of band.
package session
