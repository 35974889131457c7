// Package jobs implements background job processing for the Haven API.
//
// Each job is a Task run on an interval by a Periodic, started after the
// HTTP server and stopped during graceful shutdown:
//
//	flush := jobs.NewPeriodic("sponsor-counter-flush", time.Minute,
//	    jobs.FlushSponsorCounters(counters, sponsorRepo))
//	flush.Start()
//	defer flush.Stop()
//
// # Jobs
//
//   - FlushSponsorCounters: moves Redis impression/click counts into sponsors
//   - ExpireSponsors: expires sponsors whose ends_at has passed
//   - CancelStaleCheckouts: cancels orders stuck in pending_payment
//   - CompleteMeetups: marks ended meetups completed
//   - PurgeTokens: removes expired refresh and verification tokens
//
// Jobs log errors and keep running; a failed run is retried on the next tick.
package jobs
