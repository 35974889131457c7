// Package database provides SurrealDB connectivity for the Haven API.
//
// Repositories depend on the Database interface rather than the driver:
//
//	db := database.NewSurrealDB(cfg)
//	if err := db.Connect(ctx); err != nil { ... }
//	defer db.Close()
//	if err := database.Migrate(ctx, db); err != nil { ... }
//
// # Results
//
// Query returns one {status, result} map per statement. QueryOne returns the
// first record of the first statement, or ErrNotFound.
//
// # Errors
//
//   - ErrNotFound: record does not exist
//   - ErrDuplicate: unique index violation (one RSVP per user per meetup,
//     one vote per user per suggestion, usernames, emails)
//   - ErrConnection: connection issues
//   - ErrQuery: everything else
//
// # Batches
//
// Batch wraps several statements in BEGIN/COMMIT TRANSACTION so that, for
// example, an RSVP change and the attendee_count recount land together.
package database
