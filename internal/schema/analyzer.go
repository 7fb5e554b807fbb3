package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niisara/poc-azure-assistant/internal/blobstore"
	"github.com/niisara/poc-azure-assistant/internal/journal"
	"github.com/niisara/poc-azure-assistant/internal/metrics"
)

// BlobResult is the schema computed for one blob during a folder analysis.
type BlobResult struct {
	BlobName string
	Table    Table
}

// Report summarizes one folder analysis.
type Report struct {
	ConversationID  string
	TotalBlobsFound int
	CSVFilesFound   int
	FilesProcessed  int
	Results         []BlobResult
}

// Analyzer runs batch schema analysis over a conversation folder.
type Analyzer struct {
	gw      blobstore.Gateway
	cache   *Cache
	journal journal.Store
	metrics metrics.Backend
	log     *slog.Logger
}

// NewAnalyzer wires an Analyzer. journal and m may be journal.Nop and
// metrics.Nop respectively; log must be non-nil.
func NewAnalyzer(gw blobstore.Gateway, jr journal.Store, m metrics.Backend, log *slog.Logger) *Analyzer {
	return &Analyzer{
		gw:      gw,
		cache:   NewCache(gw),
		journal: jr,
		metrics: m,
		log:     log,
	}
}

// AnalyzeFolder infers and stores a schema for every CSV blob under
// "{conversationID}/".
//
// Unlike the single-blob read path, folder analysis always recomputes and
// overwrites cached schemas; it is the bulk refresh operation.
//
// Edge cases:
//   - Non-CSV blobs are counted in TotalBlobsFound but skipped.
//   - A folder with zero CSVs logs a warning and returns an empty,
//     successful Report.
//   - Journal failures are logged, never returned.
func (a *Analyzer) AnalyzeFolder(ctx context.Context, conversationID string) (Report, error) {
	start := time.Now()
	report := Report{ConversationID: conversationID}

	prefix := conversationID + "/"
	blobs, err := a.gw.ListBlobs(ctx, prefix)
	if err != nil {
		return report, fmt.Errorf("list blobs for %q: %w", conversationID, err)
	}
	report.TotalBlobsFound = len(blobs)
	a.log.Info("analyzing blob folder", "conversation_id", conversationID, "blobs", len(blobs))

	for _, blob := range blobs {
		if !strings.HasSuffix(strings.ToLower(blob.Name), ".csv") {
			continue
		}
		report.CSVFilesFound++
		a.log.Info("processing csv blob", "blob", blob.Name)

		data, err := a.gw.Download(ctx, blob.Name)
		if err != nil {
			return report, fmt.Errorf("download %q: %w", blob.Name, err)
		}
		table, err := Infer(data)
		if err != nil {
			return report, fmt.Errorf("analyze %q: %w", blob.Name, err)
		}
		cached, err := a.cache.Write(ctx, blob.Name, table)
		if err != nil {
			return report, fmt.Errorf("store schema for %q: %w", blob.Name, err)
		}

		report.Results = append(report.Results, BlobResult{BlobName: blob.Name, Table: table})
		report.FilesProcessed++
		a.metrics.IncCounter(metrics.BlobsProcessedTotal, 1, nil)

		if err := a.journal.Append(ctx, journal.Entry{
			ConversationID: conversationID,
			BlobName:       blob.Name,
			ColumnsCount:   cached.ColumnsCount,
			AnalyzedAt:     time.Now().UTC(),
		}); err != nil {
			a.log.Warn("journal append failed", "blob", blob.Name, "error", err)
		}
	}

	if report.CSVFilesFound == 0 {
		a.log.Warn("no csv files found in folder", "conversation_id", conversationID)
	}

	a.metrics.IncCounter(metrics.SchemaAnalysesTotal, 1, metrics.Labels{"kind": "folder"})
	a.metrics.ObserveHistogram(metrics.AnalysisSeconds, time.Since(start).Seconds(), nil)
	return report, nil
}
