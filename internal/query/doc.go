// Package query is a process-wide cache of server reads.
//
// Entries are keyed by resource name and encoded parameters ([Key]). Each entry carries a [Policy]:
//
//   - younger than Stale: served from memory
//   - older than Stale but younger than Expiry: served from memory while a background refresh runs
//   - older than Expiry: discarded; the read blocks on a refetch
//
// Concurrent reads of one key share a single in-flight fetch. A failed fetch is retried once and
// never stored, so an error does not replace or create an entry.
//
// The cache is written only by its own fetches and cleared only by [Cache.Invalidate]; mutations
// never write results into it.
package query
