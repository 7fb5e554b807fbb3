package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/niisara/poc-azure-assistant/internal/apierr"
	"github.com/niisara/poc-azure-assistant/internal/blobstore"
	"github.com/niisara/poc-azure-assistant/internal/config"
	"github.com/niisara/poc-azure-assistant/internal/executor"
	"github.com/niisara/poc-azure-assistant/internal/metrics"
	"github.com/niisara/poc-azure-assistant/internal/provision"
	"github.com/niisara/poc-azure-assistant/internal/schema"
)

// Handlers owns the HTTP endpoints. gw, cache and analyzer are nil when no
// storage account is configured; execution still works, storage-backed
// endpoints fail per-request with a configuration error.
type Handlers struct {
	cfg      config.Config
	gw       blobstore.Gateway
	runner   executor.Runner
	cache    *schema.Cache
	analyzer *schema.Analyzer
	metrics  metrics.Backend
	log      *slog.Logger
}

// NewHandlers wires the endpoint set. gw may be nil; analyzer must be
// non-nil exactly when gw is.
func NewHandlers(cfg config.Config, gw blobstore.Gateway, runner executor.Runner, analyzer *schema.Analyzer, m metrics.Backend, log *slog.Logger) *Handlers {
	h := &Handlers{
		cfg:      cfg,
		gw:       gw,
		runner:   runner,
		analyzer: analyzer,
		metrics:  m,
		log:      log,
	}
	if gw != nil {
		h.cache = schema.NewCache(gw)
	}
	return h
}

// Router returns the full route table.
func (h *Handlers) Router() *Router {
	r := NewRouter(h.log, h.metrics)
	r.GET("/api/hello", h.hello)
	r.POST("/api/echo", h.echo)
	r.POST("/api/execute", h.execute)
	r.GET("/api/test-connection", h.testConnection)
	r.GET("/api/analyze-blob-folder", h.analyzeBlobFolder)
	r.GET("/api/get-blob-schema", h.getBlobSchema)
	r.GET("/api/list-conversations", h.listConversations)
	return r
}

// gateway returns the blob store, or a configuration error when the
// storage account is not set. This keeps missing credentials a per-request
// failure instead of a startup one.
func (h *Handlers) gateway() (blobstore.Gateway, error) {
	if h.gw == nil {
		return nil, apierr.Configuration("storage account is not configured")
	}
	return h.gw, nil
}

func (h *Handlers) hello(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Hello from the assistant API!"})
}

func (h *Handlers) echo(w http.ResponseWriter, req *http.Request) {
	var body any
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		renderError(w, h.log, apierr.Validation("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"echo": body})
}

type executeRequest struct {
	Code           string `json:"code"`
	ConversationID string `json:"conversationId"`
	FileName       string `json:"fileName"`
}

type executeResponse struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Result any     `json:"result"`
	Error  *string `json:"error"`
}

func (h *Handlers) execute(w http.ResponseWriter, req *http.Request) {
	var body executeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		renderError(w, h.log, apierr.Validation("invalid JSON body"))
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		renderError(w, h.log, apierr.Validation("Missing code parameter"))
		return
	}

	var bindings map[string]any
	if body.ConversationID != "" && body.FileName != "" {
		gw, err := h.gateway()
		if err != nil {
			renderError(w, h.log, err)
			return
		}
		path, cleanup, err := provision.Provision(req.Context(), gw, provision.DatasetRef{
			ConversationID: body.ConversationID,
			FileName:       body.FileName,
		}, h.log)
		if err != nil {
			// A missing dataset inside an execute call is a server-side
			// failure of the request, not a resource lookup; only the
			// schema read endpoints answer 404.
			if apierr.KindOf(err) == apierr.KindNotFound {
				err = apierr.Storage(err, "provision dataset")
			}
			renderError(w, h.log, err)
			return
		}
		defer cleanup()
		bindings = map[string]any{"dataset_path": path}
	}

	start := time.Now()
	res, err := h.runner.Run(req.Context(), executor.Request{Code: body.Code, Bindings: bindings})
	h.metrics.ObserveHistogram(metrics.ExecutionSeconds, time.Since(start).Seconds(), nil)
	if err != nil {
		h.metrics.IncCounter(metrics.ExecutionsTotal, 1, metrics.Labels{"status": "engine_error"})
		renderError(w, h.log, err)
		return
	}

	resp := executeResponse{
		Stdout: res.Stdout,
		Stderr: res.Stderr,
		Result: res.Result,
	}
	status := "ok"
	if res.Err != "" {
		resp.Error = &res.Err
		status = "error"
	}
	h.metrics.IncCounter(metrics.ExecutionsTotal, 1, metrics.Labels{"status": status})
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) testConnection(w http.ResponseWriter, req *http.Request) {
	gw, err := h.gateway()
	if err != nil {
		renderError(w, h.log, err)
		return
	}

	containers, err := gw.ListContainers(req.Context())
	if err != nil {
		renderError(w, h.log, apierr.Storage(err, "list containers"))
		return
	}
	if len(containers) > 5 {
		containers = containers[:5]
	}

	exists := false
	for _, c := range containers {
		if c.Name == h.cfg.Storage.Container {
			exists = true
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "success",
		"message":          "Successfully connected to blob storage",
		"account_name":     h.cfg.Storage.AccountName,
		"container_name":   h.cfg.Storage.Container,
		"container_exists": exists,
		"containers_found": len(containers),
	})
}

func (h *Handlers) analyzeBlobFolder(w http.ResponseWriter, req *http.Request) {
	conversationID := req.URL.Query().Get("conversation_id")
	if conversationID == "" {
		renderError(w, h.log, apierr.Validation("Missing conversation_id parameter"))
		return
	}
	if _, err := h.gateway(); err != nil {
		renderError(w, h.log, err)
		return
	}

	report, err := h.analyzer.AnalyzeFolder(req.Context(), conversationID)
	if err != nil {
		renderError(w, h.log, apierr.Storage(err, "analyze folder %q", conversationID))
		return
	}

	results := make([]map[string]any, 0, len(report.Results))
	for _, r := range report.Results {
		results = append(results, map[string]any{
			"blob_name": r.BlobName,
			"schema":    r.Table,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id":   report.ConversationID,
		"files_processed":   report.FilesProcessed,
		"total_blobs_found": report.TotalBlobsFound,
		"csv_files_found":   report.CSVFilesFound,
		"results":           results,
	})
}

func (h *Handlers) getBlobSchema(w http.ResponseWriter, req *http.Request) {
	blobPath := req.URL.Query().Get("blob_path")
	if blobPath == "" {
		renderError(w, h.log, apierr.Validation("Missing blob_path parameter"))
		return
	}
	if _, err := h.gateway(); err != nil {
		renderError(w, h.log, err)
		return
	}

	cached, computed, err := h.cache.GetOrCompute(req.Context(), blobPath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			renderError(w, h.log, apierr.NotFound("blob %q not found", blobPath))
			return
		}
		renderError(w, h.log, apierr.Storage(err, "get schema for %q", blobPath))
		return
	}

	resp := map[string]any{
		"blob_path":          blobPath,
		"schema":             cached.Table,
		"columns_count":      strconv.Itoa(cached.ColumnsCount),
		"analyzed_timestamp": cached.AnalyzedTimestamp,
	}
	if computed {
		resp["note"] = "Schema was not previously available and has been generated now"
		h.metrics.IncCounter(metrics.SchemaAnalysesTotal, 1, metrics.Labels{"kind": "single"})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) listConversations(w http.ResponseWriter, req *http.Request) {
	gw, err := h.gateway()
	if err != nil {
		renderError(w, h.log, err)
		return
	}

	blobs, err := gw.ListBlobs(req.Context(), "")
	if err != nil {
		renderError(w, h.log, apierr.Storage(err, "list blobs"))
		return
	}

	seen := map[string]bool{}
	for _, b := range blobs {
		if i := strings.Index(b.Name, "/"); i > 0 {
			seen[b.Name[:i]] = true
		}
	}
	conversations := make([]string, 0, len(seen))
	for id := range seen {
		conversations = append(conversations, id)
	}
	sort.Strings(conversations)

	writeJSON(w, http.StatusOK, map[string]any{
		"container_name":     h.cfg.Storage.Container,
		"conversation_count": len(conversations),
		"conversations":      conversations,
	})
}
