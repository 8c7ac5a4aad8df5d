// Package index derives the workspace's cross-file indices from the
// authoritative parsed-file map. The indices are caches of a pure function
// of that map: they are rebuilt in full on every state transition and never
// mutated independently.
package index
