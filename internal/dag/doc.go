// Package dag models the declared tasks of a project as an immutable,
// validated prerequisite graph and runs invocation plans over it.
//
// The graph definition (TaskGraph) never changes after construction; the
// runtime status of one invocation lives in an ExecutionState owned by the
// Executor, so the same graph can be run any number of times.
package dag
