// Package workspace is the public surface of the configuration workspace:
// a set of source files, their parsed and merged element view, and the
// operations that read and mutate them.
//
// Mutations run through a FIFO task queue, one at a time. Reads wait for
// every mutation queued before them, then load the latest published snapshot
// without locking. The snapshot is built lazily on first use.
package workspace
