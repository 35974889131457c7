// Package fixtures creates Haven records for integration tests through the
// real repositories.
//
//	f := fixtures.New(tdb.DB)
//	owner := f.CreateUser(t)
//	memorial := f.CreateMemorial(t, owner)
//	meetup := f.CreateMeetup(t, owner, func(o *fixtures.MeetupOpts) { o.MaxAttendees = 1 })
package fixtures
