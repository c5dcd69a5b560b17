// Package watch turns filesystem changes into task runs.
//
// A Watcher reports changes that match a binding's globs as Events on a
// channel; a Scheduler consumes them, waits for saves to settle, and runs
// each bound task with at most one run in flight per task.
package watch
