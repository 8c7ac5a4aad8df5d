// Package parsecache provides the parse-result cache backends behind the
// parser.Cache interface: an ephemeral in-memory cache for tests and
// short-lived workspaces, and a SQLite-backed cache that persists parse
// results across runs.
//
// Both backends key on {filename, modification time, content fingerprint}
// and keep at most one entry per filename: a changed fingerprint replaces
// the stale entry instead of accumulating next to it.
package parsecache
