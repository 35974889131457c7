// Package service implements the business logic layer for the Haven API.
//
// The service package contains the domain rules of the community: who may
// host a meetup, when a waitlisted member is promoted, which orders unlock a
// download, how a checkout webhook becomes a paid order. Services are the
// only layer that handlers talk to.
//
// # Service Pattern
//
//   - Constructor function (NewXxxService) accepts a config struct or its
//     repository dependencies directly
//   - Methods take an Actor or user id first, then the request body
//   - Errors are returned as sentinel errors, a *ValidationError carrying
//     field errors, or a *VerificationError naming the missing level
//
// # Repository Interfaces
//
// Services define the narrow repository interfaces they need. The SurrealDB
// repositories satisfy them, and the tests satisfy them with in-memory maps.
//
// # Verification Levels
//
// Profiles move through unverified, email_verified, id_verified and
// meetup_organizer. requireVerification gates an operation on a level and
// raiseVerification advances a profile with compare-and-set so that a
// concurrent approval can never lower it.
//
// # Example Usage
//
//	meetups := NewMeetupService(MeetupServiceConfig{
//	    MeetupRepo: meetupRepository,
//	    Profiles:   profileRepository,
//	    Events:     hub,
//	})
//	res, err := meetups.RSVP(ctx, userID, model.RSVPRequest{
//	    MeetupID: meetupID,
//	    Status:   "attending",
//	})
package service
