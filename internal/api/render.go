package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/niisara/poc-azure-assistant/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// renderError maps a classified error onto the wire shapes the service has
// always used: validation failures are `{"error": msg}`, everything else
// is `{"status": "error", "message": msg, "error_details": chain}`.
func renderError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apierr.HTTPStatus(err)

	if apierr.KindOf(err) == apierr.KindValidation {
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	log.Error("request failed", "error", err, "status", status)
	writeJSON(w, status, map[string]any{
		"status":        "error",
		"message":       err.Error(),
		"error_details": fmt.Sprintf("%+v", err),
	})
}
