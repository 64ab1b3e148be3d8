// Package sqlite opens embedded SQLite databases and applies schema migrations.
//
// Databases are opened with the pure Go modernc.org/sqlite driver, so no cgo
// toolchain is needed. File databases run in WAL mode with a busy timeout;
// in-memory databases are pinned to a single connection so that every query
// sees the same schema.
//
//	db, err := sqlite.Open(ctx, "data/journal.db", sqlite.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	if err := sqlite.Migrate(db, migrations.FS, "."); err != nil {
//		return err
//	}
//
// Migrations are read from any fs.FS, usually an embed.FS compiled into the
// binary, and follow the golang-migrate naming scheme
// (NNN_name.up.sql / NNN_name.down.sql).
package sqlite
