// Package retry wraps upstream fetch operations in a bounded
// exponential-backoff retry loop.
//
// Delays double from Config.MinInterval up to Config.MaxInterval, with
// randomization applied so that every sleep lands at a positive fraction
// of the current interval; back-to-back attempts never fire with zero
// delay. The loop is driven by the caller's context: cancellation during
// a backoff sleep stops the loop with the context's error.
//
// Errors pass through untouched. When all attempts are exhausted, Do
// returns the last attempt's error exactly as the operation produced it,
// not wrapped in an "exhausted" error. An error classified as permanent
// stops the loop immediately and is returned as-is.
package retry
