// Package executor runs caller-supplied code fragments and captures their
// output.
//
// The engine contract is fixed across isolation strategies: callers hand in
// code text plus optional named bindings and get back captured stdout,
// stderr, an optional structured result, and an optional fault message.
// Runner implementations choose how isolated execution actually is; the
// default PythonRunner uses a subprocess, which gives per-call namespace
// and process separation but no filesystem, network, or resource
// sandboxing. Deployments needing real isolation must wrap a Runner in a
// container or remote sandbox.
package executor

import "context"

// Request is one execution call.
type Request struct {
	// Code is arbitrary, untrusted program text.
	Code string

	// Bindings are injected into the execution namespace before the code
	// runs, e.g. {"dataset_path": "/tmp/dataset-….csv"}. Values must be
	// JSON-serializable.
	Bindings map[string]any
}

// Result is the captured outcome of one execution.
//
// Invariant: when Err is non-empty, Result is nil; Stdout and Stderr may be
// non-empty either way. On a fault Stderr carries the full diagnostic
// trace, replacing whatever partial stderr the snippet produced.
type Result struct {
	Stdout string
	Stderr string
	Result any
	// Err is the message of the fault raised by the snippet. A fault is
	// data about the caller's code, not an engine failure; engine failures
	// are the error return of Run.
	Err string
}

// Runner executes code fragments.
//
// A non-nil error means the engine itself failed (interpreter missing,
// malformed harness output, unserializable result value) and the caller
// should respond with a server error. A snippet fault is reported inside
// Result with a nil error.
//
// Run blocks until the snippet finishes; there is no internal timeout.
// Callers impose deadlines through ctx, which kills the execution.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}
