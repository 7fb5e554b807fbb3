// Command analyze infers CSV column schemas from the command line.
//
// Two modes:
//
//   - -file <path>: analyze a local CSV and print its schema as JSON.
//     Useful for checking how a dataset will classify before uploading.
//
//   - -conversation <id>: run the same batch analysis the
//     /api/analyze-blob-folder endpoint performs, against the storage
//     account configured in the environment, and print the report.
//     Schemas are written back to blob metadata exactly as the API does.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/niisara/poc-azure-assistant/internal/blobstore/azure"
	"github.com/niisara/poc-azure-assistant/internal/config"
	"github.com/niisara/poc-azure-assistant/internal/journal"
	"github.com/niisara/poc-azure-assistant/internal/logging"
	"github.com/niisara/poc-azure-assistant/internal/metrics"
	"github.com/niisara/poc-azure-assistant/internal/schema"

	_ "github.com/niisara/poc-azure-assistant/internal/journal/mssql"
	_ "github.com/niisara/poc-azure-assistant/internal/journal/postgres"
	_ "github.com/niisara/poc-azure-assistant/internal/journal/sqlite"
)

func main() {
	var (
		flagFile         = flag.String("file", "", "local CSV file to analyze")
		flagConversation = flag.String("conversation", "", "conversation folder to analyze in blob storage")
	)
	flag.Parse()

	switch {
	case *flagFile != "" && *flagConversation != "":
		fatalf("use either -file or -conversation, not both")
	case *flagFile != "":
		analyzeFile(*flagFile)
	case *flagConversation != "":
		analyzeFolder(*flagConversation)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func analyzeFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("read %s: %v", path, err)
	}
	table, err := schema.Infer(data)
	if err != nil {
		fatalf("analyze %s: %v", path, err)
	}
	printJSON(table)
}

func analyzeFolder(conversationID string) {
	cfg := config.Load()
	if !cfg.Storage.Configured() {
		fatalf("AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY must be set for -conversation")
	}

	log, closeLog := logging.Setup(cfg.SeqURL, cfg.Debug)
	defer closeLog()

	ctx := context.Background()
	gw, err := azure.New(cfg.Storage.AccountName, cfg.Storage.AccountKey, cfg.Storage.Container)
	if err != nil {
		fatalf("blob storage init: %v", err)
	}
	jr, err := journal.New(ctx, journal.Config{Kind: cfg.Journal.Backend, DSN: cfg.Journal.DSN})
	if err != nil {
		fatalf("journal init: %v", err)
	}
	defer func() { _ = jr.Close() }()

	analyzer := schema.NewAnalyzer(gw, jr, metrics.Nop{}, log)
	report, err := analyzer.AnalyzeFolder(ctx, conversationID)
	if err != nil {
		fatalf("analyze folder %s: %v", conversationID, err)
	}

	printJSON(map[string]any{
		"conversation_id":   report.ConversationID,
		"files_processed":   report.FilesProcessed,
		"total_blobs_found": report.TotalBlobsFound,
		"csv_files_found":   report.CSVFilesFound,
	})
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encode output: %v", err)
	}
	fmt.Println(string(b))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
