// Package repository implements the SurrealDB data access layer for the
// Haven API.
//
// Each repository owns one table family and satisfies the narrow interfaces
// declared by the service package. Missing rows come back as nil, nil and
// unique-index violations as database.ErrDuplicate.
//
// # Query Patterns
//
//   - Parameterized queries with $variable syntax
//   - type::record() to turn record id strings into record links
//   - Conditional UPDATE ... WHERE status = $expected for state transitions,
//     so a lost race returns no row instead of overwriting
//   - time::now() for automatic timestamps
//
// # Example Usage
//
//	repo := NewMeetupRepository(db)
//	meetup, err := repo.GetByID(ctx, "meetups:abc123")
//	if err != nil {
//	    return err
//	}
//	if meetup == nil {
//	    // not found
//	}
package repository
