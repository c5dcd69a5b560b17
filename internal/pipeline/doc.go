// Package pipeline implements the stage chains that tasks run.
//
// A Chain is an ordered, fixed list of stages. Each stage consumes the
// complete output of the previous one. The first failing stage ends the
// chain with a *StageError; later stages do not run.
package pipeline
