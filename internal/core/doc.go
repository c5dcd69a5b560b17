// Package core provides the building blocks shared by every asset task.
//
// # Core Types
//
// Task: a named, declared unit of work (stylesheet, script, group or watch).
// Input: a resolved source file read by content.
// Artifact: a file written by a task to a declared output location.
//
// Inputs are resolved through a billy.Filesystem so the same code runs
// against the project directory and against in-memory trees in tests.
//
// # Ordering
//
// Source File Sets are ordered glob lists. Within one pattern, matches are
// sorted lexicographically; across patterns, declared order wins and the
// first occurrence of a path is kept.
package core
