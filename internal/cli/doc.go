// Package cli parses command-line arguments for the naclws tool and runs the
// selected command. It translates flags into workspace configuration and
// handles process-level concerns like exit codes.
package cli
