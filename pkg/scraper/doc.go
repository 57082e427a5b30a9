// Package scraper contains the retry controller at the heart of the
// archiver.
//
// The controller walks a profile's post sequence through a MediaSource,
// downloading image posts one at a time. A transient failure (rate limiting,
// connection trouble) aborts the traversal, sleeps per a fixed escalating
// schedule, and restarts the walk from the beginning; already archived posts
// are deduplicated by shortcode so restarts never double-count. A stall
// guard ends the run once the schedule is exhausted and a full attempt makes
// no progress, so the loop always terminates.
//
// Usage:
//
//	ctrl := scraper.NewController(source, scraper.Options{
//	    Pacer: ratelimit.NewFixedInterval(5 * time.Second),
//	})
//	profile, err := source.ResolveProfile(ctx, "username")
//	if err != nil {
//	    // handle resolution failure
//	}
//	result := ctrl.Run(ctx, profile)
//	fmt.Printf("archived %d posts (%s)\n", result.Processed, result.Reason)
package scraper
