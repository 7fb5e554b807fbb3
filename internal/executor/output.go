package executor

import (
	"encoding/json"
	"strings"
)

// extractOutValue finds the first stdout line that is a JSON object with
// an "__out" key, returns its value, and returns the remaining stdout with
// that line removed. Non-matching lines, JSON or not, are preserved in
// order. Returns (nil, stdout) when no envelope is present.
func extractOutValue(stdout string) (value any, remaining string) {
	if stdout == "" {
		return nil, ""
	}

	lines := strings.Split(stdout, "\n")
	kept := make([]string, 0, len(lines))
	var found any
	seen := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !seen {
			var obj map[string]any
			if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
				if v, ok := obj["__out"]; ok {
					found = v
					seen = true
					continue
				}
			}
		}
		kept = append(kept, line)
	}
	return found, strings.Join(kept, "\n")
}
