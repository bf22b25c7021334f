// Package resilience holds the retry and concurrency primitives shared by
// the task engine and the outbound clients.
//
//   - NextDelay / ShouldRetry: the deterministic backoff policy applied
//     between task attempts. No jitter, so schedules are reproducible.
//   - Retry: a generic retry loop for transport calls (webhook delivery,
//     database connect) that may add jitter on top of the same maths.
//   - Bulkhead: bounds how many task attempts run at once.
//   - CircuitBreaker and RateLimiter: guard the webhook client and the
//     manual trigger endpoint.
package resilience
