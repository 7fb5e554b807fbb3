package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// harness is the Python program each execution runs inside. It reads a
// JSON payload {code, bindings} on stdin, execs the code with a single
// dict as both globals and locals so definitions inside the snippet can
// see each other, and reports the outcome as one JSON line
// {"__out": {...}} on the real stdout.
//
// Streams are swapped to in-memory buffers for the duration of the exec
// and restored on every path. A fault replaces the captured stderr with
// the full traceback; the trace is worth more than partially interleaved
// output. A `result` value that json cannot serialize is flagged rather
// than dropped, so the Go side can surface it as a response-layer error.
const harness = `
import io, json, sys, traceback

payload = json.load(sys.stdin)
ns = dict(payload.get("bindings") or {})
out = {"stdout": "", "stderr": "", "result": None, "error": None}

buf_out, buf_err = io.StringIO(), io.StringIO()
real_out, real_err = sys.stdout, sys.stderr
try:
    sys.stdout, sys.stderr = buf_out, buf_err
    try:
        exec(payload["code"], ns, ns)
        out["stdout"] = buf_out.getvalue()
        out["stderr"] = buf_err.getvalue()
    except BaseException as e:
        out["error"] = str(e)
        out["stdout"] = buf_out.getvalue()
        out["stderr"] = traceback.format_exc()
finally:
    sys.stdout, sys.stderr = real_out, real_err

if out["error"] is None and "result" in ns:
    try:
        json.dumps(ns["result"])
        out["result"] = ns["result"]
    except (TypeError, ValueError):
        out["result_unserializable"] = True

print(json.dumps({"__out": out}))
`

// PythonRunner executes snippets in a fresh Python subprocess per call.
type PythonRunner struct {
	// Bin is the interpreter to invoke, e.g. "python3".
	Bin string
	Log *slog.Logger
}

// NewPythonRunner returns a runner using the given interpreter binary.
func NewPythonRunner(bin string, log *slog.Logger) *PythonRunner {
	return &PythonRunner{Bin: bin, Log: log}
}

type harnessOut struct {
	Stdout               string  `json:"stdout"`
	Stderr               string  `json:"stderr"`
	Result               any     `json:"result"`
	Error                *string `json:"error"`
	ResultUnserializable bool    `json:"result_unserializable"`
}

// Run implements Runner.
func (r *PythonRunner) Run(ctx context.Context, req Request) (Result, error) {
	payload, err := json.Marshal(map[string]any{
		"code":     req.Code,
		"bindings": req.Bindings,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode execution payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Bin, "-c", harness)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// The harness catches snippet faults itself; a non-zero exit means
		// the engine is broken (missing interpreter, harness bug, kill).
		return Result{}, fmt.Errorf("run interpreter %q: %w: %s", r.Bin, err, strings.TrimSpace(stderr.String()))
	}

	outVal, leaked := extractOutValue(stdout.String())
	if outVal == nil {
		return Result{}, fmt.Errorf("run interpreter %q: no output envelope in %q", r.Bin, stdout.String())
	}

	raw, err := json.Marshal(outVal)
	if err != nil {
		return Result{}, fmt.Errorf("decode execution output: %w", err)
	}
	var out harnessOut
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("decode execution output: %w", err)
	}

	res := Result{
		Stdout: out.Stdout,
		Stderr: out.Stderr,
		Result: out.Result,
	}
	// Writes that bypass the stream swap (direct fd 1 writes) end up on the
	// process stdout around the envelope; keep them.
	if leaked = strings.TrimSpace(leaked); leaked != "" {
		if r.Log != nil {
			r.Log.Debug("execution bypassed stdout capture", "bytes", len(leaked))
		}
		res.Stdout += leaked + "\n"
	}
	if out.Error != nil {
		res.Err = *out.Error
		res.Result = nil
	}
	if out.ResultUnserializable {
		return res, fmt.Errorf("execution result is not JSON-serializable")
	}
	return res, nil
}
