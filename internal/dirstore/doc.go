// Package dirstore abstracts the flat file space a workspace reads its
// source files from.
//
// Filenames are slash-separated paths relative to the store root. Two
// implementations exist: Memory for tests and ephemeral workspaces, and Disk
// for a real directory tree. Disk buffers writes and deletions until Flush,
// so a crashed process never leaves a half-written workspace behind.
//
// Watcher turns raw fsnotify events on a Disk store's directory into
// debounced batches of changed and removed filenames.
package dirstore
