package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/niisara/poc-azure-assistant/internal/blobstore"
	"github.com/niisara/poc-azure-assistant/internal/blobstore/memory"
	"github.com/niisara/poc-azure-assistant/internal/config"
	"github.com/niisara/poc-azure-assistant/internal/executor"
	"github.com/niisara/poc-azure-assistant/internal/journal"
	"github.com/niisara/poc-azure-assistant/internal/metrics"
	"github.com/niisara/poc-azure-assistant/internal/schema"
)

const salesCSV = "id,amount\n1,2.5\n2,3.5\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records requests and returns a canned result.
type fakeRunner struct {
	mu     sync.Mutex
	reqs   []executor.Request
	result executor.Result
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, req executor.Request) (executor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.result, f.err
}

func (f *fakeRunner) calls() []executor.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executor.Request(nil), f.reqs...)
}

func testConfig() config.Config {
	return config.Config{
		Port: 5001,
		Storage: config.Storage{
			AccountName: "acct",
			AccountKey:  "key",
			Container:   "conversations",
		},
	}
}

func newTestHandlers(gw blobstore.Gateway, runner executor.Runner) *Handlers {
	var analyzer *schema.Analyzer
	if gw != nil {
		analyzer = schema.NewAnalyzer(gw, journal.Nop{}, metrics.Nop{}, discardLogger())
	}
	return NewHandlers(testConfig(), gw, runner, analyzer, metrics.Nop{}, discardLogger())
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response not JSON: %v: %s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

// TestHello verifies the health-style greeting endpoint.
func TestHello(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(memory.New(), &fakeRunner{}).Router()
	rec, body := doRequest(t, h, http.MethodGet, "/api/hello", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["message"] == "" {
		t.Fatalf("body=%v, want a message", body)
	}
}

// TestEcho verifies arbitrary JSON round-trips under the echo key.
func TestEcho(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(memory.New(), &fakeRunner{}).Router()
	rec, body := doRequest(t, h, http.MethodPost, "/api/echo", `{"a": [1, 2], "b": "x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	echo, ok := body["echo"].(map[string]any)
	if !ok || echo["b"] != "x" {
		t.Fatalf("echo=%v, want original payload", body["echo"])
	}
}

// TestExecute_MissingCode verifies validation rejects before any execution
// is attempted.
func TestExecute_MissingCode(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	h := newTestHandlers(memory.New(), runner).Router()

	rec, body := doRequest(t, h, http.MethodPost, "/api/execute", `{"code": "  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
	if body["error"] == nil {
		t.Fatalf("body=%v, want error field", body)
	}
	if len(runner.calls()) != 0 {
		t.Fatalf("runner was called %d times, want 0", len(runner.calls()))
	}
}

// TestExecute_Success verifies the response shape for a clean run.
func TestExecute_Success(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: executor.Result{Stdout: "hi\n", Result: float64(4)}}
	h := newTestHandlers(memory.New(), runner).Router()

	rec, body := doRequest(t, h, http.MethodPost, "/api/execute", `{"code": "result = 2 + 2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["result"] != float64(4) || body["stdout"] != "hi\n" {
		t.Fatalf("body=%v, want result=4 stdout=hi", body)
	}
	if body["error"] != nil {
		t.Fatalf("error=%v, want null", body["error"])
	}
}

// TestExecute_SnippetFault verifies a fault stays a 200 with error data.
func TestExecute_SnippetFault(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: executor.Result{Stderr: "Traceback ...", Err: "division by zero"}}
	h := newTestHandlers(memory.New(), runner).Router()

	rec, body := doRequest(t, h, http.MethodPost, "/api/execute", `{"code": "1/0"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200 (fault is data)", rec.Code)
	}
	if body["error"] != "division by zero" {
		t.Fatalf("error=%v, want division by zero", body["error"])
	}
	if body["result"] != nil {
		t.Fatalf("result=%v, want null when error set", body["result"])
	}
}

// TestExecute_EngineError verifies engine failures are 500s.
func TestExecute_EngineError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: context.DeadlineExceeded}
	h := newTestHandlers(memory.New(), runner).Router()

	rec, body := doRequest(t, h, http.MethodPost, "/api/execute", `{"code": "while True: pass"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
	if body["status"] != "error" {
		t.Fatalf("body=%v, want status=error", body)
	}
}

// TestExecute_WithDataset verifies the dataset is provisioned, its path
// bound for the snippet, and the scratch file removed after the response.
func TestExecute_WithDataset(t *testing.T) {
	t.Parallel()

	store := memory.New("conversations")
	store.Put("conv-1/data.csv", []byte(salesCSV))
	runner := &fakeRunner{result: executor.Result{Result: "done"}}
	h := newTestHandlers(store, runner).Router()

	rec, _ := doRequest(t, h, http.MethodPost, "/api/execute",
		`{"code": "result = 'done'", "conversationId": "conv-1", "fileName": "data.csv"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	calls := runner.calls()
	if len(calls) != 1 {
		t.Fatalf("runner calls=%d, want 1", len(calls))
	}
	path, ok := calls[0].Bindings["dataset_path"].(string)
	if !ok || path == "" {
		t.Fatalf("bindings=%v, want dataset_path", calls[0].Bindings)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("scratch file %q still exists after response", path)
	}
}

// TestExecute_DatasetMissingBlob verifies a missing dataset is a server
// failure inside execute, not a 404.
func TestExecute_DatasetMissingBlob(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	h := newTestHandlers(memory.New("conversations"), runner).Router()

	rec, _ := doRequest(t, h, http.MethodPost, "/api/execute",
		`{"code": "result = 1", "conversationId": "conv-1", "fileName": "absent.csv"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
	if len(runner.calls()) != 0 {
		t.Fatalf("runner was called despite provisioning failure")
	}
}

// TestExecute_DatasetWithoutStorage verifies requesting a dataset with no
// configured storage account is a 500 configuration failure, while plain
// execution keeps working.
func TestExecute_DatasetWithoutStorage(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: executor.Result{Result: float64(1)}}
	h := newTestHandlers(nil, runner).Router()

	rec, _ := doRequest(t, h, http.MethodPost, "/api/execute",
		`{"code": "result = 1", "conversationId": "conv-1", "fileName": "data.csv"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500 for dataset without storage", rec.Code)
	}

	rec, body := doRequest(t, h, http.MethodPost, "/api/execute", `{"code": "result = 1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200 for plain execution", rec.Code)
	}
	if body["result"] != float64(1) {
		t.Fatalf("result=%v, want 1", body["result"])
	}
}

// TestTestConnection verifies the connection report fields.
func TestTestConnection(t *testing.T) {
	t.Parallel()

	store := memory.New("conversations", "archives")
	h := newTestHandlers(store, &fakeRunner{}).Router()

	rec, body := doRequest(t, h, http.MethodGet, "/api/test-connection", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["status"] != "success" || body["container_exists"] != true {
		t.Fatalf("body=%v, want success and container_exists", body)
	}
	if body["containers_found"] != float64(2) || body["container_name"] != "conversations" {
		t.Fatalf("body=%v, want 2 containers and the configured name", body)
	}
}

// TestAnalyzeBlobFolder verifies counts and the result shape on a mixed
// folder.
func TestAnalyzeBlobFolder(t *testing.T) {
	t.Parallel()

	store := memory.New("conversations")
	store.Put("conv-1/sales.csv", []byte(salesCSV))
	store.Put("conv-1/notes.txt", []byte("n"))
	store.Put("conv-1/logo.png", []byte("p"))
	h := newTestHandlers(store, &fakeRunner{}).Router()

	rec, body := doRequest(t, h, http.MethodGet, "/api/analyze-blob-folder?conversation_id=conv-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["total_blobs_found"] != float64(3) || body["csv_files_found"] != float64(1) || body["files_processed"] != float64(1) {
		t.Fatalf("body=%v, want 3/1/1 counts", body)
	}
	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results=%v, want one entry", body["results"])
	}
	entry := results[0].(map[string]any)
	if entry["blob_name"] != "conv-1/sales.csv" {
		t.Fatalf("entry=%v, want conv-1/sales.csv", entry)
	}
}

// TestAnalyzeBlobFolder_MissingParam verifies the 400 contract.
func TestAnalyzeBlobFolder_MissingParam(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(memory.New(), &fakeRunner{}).Router()
	rec, body := doRequest(t, h, http.MethodGet, "/api/analyze-blob-folder", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
	if body["error"] == nil {
		t.Fatalf("body=%v, want error field", body)
	}
}

// TestGetBlobSchema verifies the compute-then-cache flow on the wire: the
// first read carries the freshly-generated note, the second does not.
func TestGetBlobSchema(t *testing.T) {
	t.Parallel()

	store := memory.New("conversations")
	store.Put("conv-1/sales.csv", []byte(salesCSV))
	h := newTestHandlers(store, &fakeRunner{}).Router()

	rec, body := doRequest(t, h, http.MethodGet, "/api/get-blob-schema?blob_path=conv-1/sales.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["note"] == nil {
		t.Fatalf("first read body=%v, want freshly-generated note", body)
	}
	if body["columns_count"] != "2" {
		t.Fatalf("columns_count=%v, want \"2\"", body["columns_count"])
	}

	rec, body = doRequest(t, h, http.MethodGet, "/api/get-blob-schema?blob_path=conv-1/sales.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["note"] != nil {
		t.Fatalf("second read body=%v, want no note on cache hit", body)
	}
	cols, ok := body["schema"].([]any)
	if !ok || len(cols) != 2 {
		t.Fatalf("schema=%v, want 2 columns", body["schema"])
	}
}

// TestGetBlobSchema_NotFound verifies missing blobs answer 404.
func TestGetBlobSchema_NotFound(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(memory.New("conversations"), &fakeRunner{}).Router()
	rec, _ := doRequest(t, h, http.MethodGet, "/api/get-blob-schema?blob_path=conv-1/absent.csv", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

// TestListConversations verifies folder extraction, dedup and ordering.
func TestListConversations(t *testing.T) {
	t.Parallel()

	store := memory.New("conversations")
	store.Put("conv-b/x.csv", nil)
	store.Put("conv-a/y.csv", nil)
	store.Put("conv-a/z.csv", nil)
	store.Put("rootfile.txt", nil)
	h := newTestHandlers(store, &fakeRunner{}).Router()

	rec, body := doRequest(t, h, http.MethodGet, "/api/list-conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["conversation_count"] != float64(2) {
		t.Fatalf("conversation_count=%v, want 2", body["conversation_count"])
	}
	convs, ok := body["conversations"].([]any)
	if !ok || len(convs) != 2 || convs[0] != "conv-a" || convs[1] != "conv-b" {
		t.Fatalf("conversations=%v, want sorted [conv-a conv-b]", body["conversations"])
	}
}

// TestStorageEndpointsWithoutStorage verifies the per-request
// configuration failure for every storage-backed endpoint.
func TestStorageEndpointsWithoutStorage(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(nil, &fakeRunner{}).Router()
	endpoints := []string{
		"/api/test-connection",
		"/api/analyze-blob-folder?conversation_id=c",
		"/api/get-blob-schema?blob_path=c/x.csv",
		"/api/list-conversations",
	}
	for _, ep := range endpoints {
		rec, body := doRequest(t, h, http.MethodGet, ep, "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s status=%d, want 500", ep, rec.Code)
		}
		if body["status"] != "error" {
			t.Fatalf("%s body=%v, want status=error", ep, body)
		}
	}
}

// TestRouterUnknownRoutes verifies 404 and 405 behavior.
func TestRouterUnknownRoutes(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(memory.New(), &fakeRunner{}).Router()

	rec, _ := doRequest(t, h, http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d, want 404", rec.Code)
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/hello", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method status=%d, want 405", rec.Code)
	}
}
