// Package state holds the workspace's current snapshot and computes the next
// one from a batch of changed files.
//
// A snapshot is an immutable value: parsed files, merged elements, merge
// errors and the derived indices, all replaced wholesale on every
// transition and published atomically. Readers always observe a fully
// consistent snapshot; they never see a half-applied update.
//
// Transitions themselves are not internally serialized. The caller (the
// workspace's operation queue) must guarantee that no two ingests run
// concurrently; reads may run at any time.
package state
