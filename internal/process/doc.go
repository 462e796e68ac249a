// Package process spawns and supervises one external media-processing
// process per Handle.
//
// A spawned process has three fixed channels: stdout carries the
// machine-readable key=value progress records, stderr carries the
// human-readable diagnostics, and stdin stays open as the control channel
// for the graceful-quit command.
//
// Handle offers:
//   - Wait: idempotent await of the terminal state; the classified error
//     is derived once from exit code plus the diagnostic tail and cached
//   - Progress: a finite, non-restartable snapshot sequence
//   - Abort: graceful quit over the control channel, then Wait
//   - Pause/Resume: OS-level suspension, platform-selected at build time
//   - Kill: direct signal delivery for callers with their own deadlines
//
// Conduits handed over at spawn time are closed by the exit observer, so
// a failed launch never leaves a dangling listener.
package process
