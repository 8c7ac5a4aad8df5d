// Package taskq serializes workspace mutations.
//
// Every state transition (set, remove, update, clear, rename) runs through a
// single Queue, which executes tasks one at a time in submission order.
// Readers that need to observe the effects of every mutation submitted so far
// call Wait before loading the snapshot.
package taskq
