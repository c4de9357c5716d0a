// Package database opens the SQLite database that holds the audit trail
// and applies its schema migrations.
//
// The connection uses WAL mode and a busy timeout, and the pool is held
// to a single connection. Migrations are read from an fs.FS (normally the
// embedded migrations package) and applied one transaction each.
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
