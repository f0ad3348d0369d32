// Package batch drives a caller supplied item operation over a list of inputs
// in fixed-size chunks.
//
// Every item in a chunk runs concurrently, wrapped in the retry primitive, and
// the next chunk starts only once the whole chunk has resolved. Key properties:
//   - Results always come back ordered by original input index
//   - Item failures are recorded, never fatal to the run
//   - Live progress with an estimated time remaining after every item
//   - Cancellation through the run context, checked at chunk boundaries
//   - A pacing delay between chunks to spare downstream services
//
// An in-flight item is never interrupted; cancelling the run only prevents
// further chunks from starting.
package batch
