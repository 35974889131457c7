// Package model defines the domain types and request payloads of the Haven API.
//
// Entities (Profile, Memorial, Meetup, RSVP, ForumTopic, Order, Sponsor, ...)
// carry their status enums and the small rules that belong to them, such as
// VerificationStatus.AtLeast and SponsorStatus.CanTransition. Request types
// expose Validate methods returning []FieldError, which handlers turn into a
// 400 ProblemDetails.
//
// Errors returned to clients use ProblemDetails (RFC 9457) with an additional
// `error` string.
package model
