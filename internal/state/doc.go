// Package state persists the run ledger: one directory per CLI invocation
// holding run.json and, when the run did not succeed, failure.json.
package state
