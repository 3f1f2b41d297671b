// Package database provides SQLite connectivity for the Gray Logic Conductor.
//
// It opens the database with WAL mode and a busy timeout, keeps a single
// connection (SQLite allows one writer), and applies additive schema
// migrations supplied as an fs.FS.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
