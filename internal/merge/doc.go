// Package merge combines same-identity element fragments from different
// files into single logical elements.
//
// Merging is deterministic: fragments fold in filename order, so the first
// file (lexicographically) wins conflicting scalar values and every conflict
// is surfaced as a merge error against the conflicting value's identity.
// Merge errors are data: they accumulate per identity and never stop other
// identities from merging.
package merge
