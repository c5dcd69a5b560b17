// Package orchestrator wires configuration, the task graph and the stage
// chains into the operations the command line exposes: running one task with
// its prerequisites, and watching the source tree to rerun bound tasks.
package orchestrator
