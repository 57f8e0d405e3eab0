// Package resilience provides the fault-tolerance primitives used around
// external work: ffmpeg subprocesses, the transcription backend and the
// HTTP surface.
//
//   - Bulkhead bounds concurrent calls (feature extraction fan-out).
//   - Retry re-runs failed calls with backoff (transcription).
//   - CircuitBreaker fails fast after repeated failures (ffmpeg runner).
//   - RateLimiter is a token bucket (per-client API limits).
package resilience
