// Package database owns the SQLite file backing the state history store.
// It opens the connection with WAL mode and a busy timeout, applies the
// embedded schema migrations, and hands the *sql.DB to the repository
// layer.
//
// The schema is tiny on purpose: FanBridge persists nothing but fan state
// transitions. Everything else (device list, live state) is rebuilt from
// the cloud on startup.
//
// Migrations are numbered NNN_description.up.sql / .down.sql pairs
// embedded by the migrations package. Each runs in its own transaction,
// so a failed migration leaves earlier ones committed and is retried on
// the next start.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
