// Package handler provides the HTTP handlers for the Haven API.
//
// Each handler struct wraps one service and exposes one method per route.
// Handlers decode the request, call the service with the caller taken from
// the auth middleware, and write either a {"data": ...} envelope or an
// RFC 9457 problem document produced by MapServiceError.
//
// Routes are registered on a net/http ServeMux in cmd/server:
//
//	h := handler.NewMeetupHandler(meetupService)
//	mux.Handle("POST /api/meetups", auth(http.HandlerFunc(h.Create)))
package handler
