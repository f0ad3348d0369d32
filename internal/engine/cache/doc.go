// Package cache stores successful item results on disk so that a re-run of
// the same input against the same endpoint skips rows that already went
// through.
//
// Entries are JSON files named after a SHA256 key of the endpoint and the
// row's fields. Each entry expires after the store's TTL; expired entries are
// ignored on read and removed by Prune.
package cache
