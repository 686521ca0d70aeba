// Package warmup regenerates the databoxes of many posts in parallel.
//
// It backs the batch refresh command and is meant for cron-style runs after
// settings changes or an upstream outage. Posts are refreshed with the
// background timeout and without last known good fallback, so a failure is
// reported rather than masked.
//
// Example usage:
//
//	warmer := warmup.New(generator, warmup.DefaultConfig())
//	results, err := warmer.RefreshAll(ctx, posts, display)
//
// The warmer:
//   - Runs at most MaxConcurrency refreshes at a time
//   - Bounds every refresh with JobTimeout
//   - Returns one result per post, in input order
//   - Stops scheduling new posts once ctx is cancelled (partial results)
package warmup
