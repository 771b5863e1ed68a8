package source

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// ExtractID derives the stable identifier used to key mappings.
//
// Precedence: the first string entry of identifiers (suffix after its last
// colon when it has one), then the id field, then the last path segment of
// browser_url. An empty result means the event cannot be synced.
func ExtractID(ev models.SourceEvent) string {
	if id := fromIdentifiers(ev.Identifiers); id != "" {
		return id
	}
	if id := scalarString(ev.ID); id != "" {
		return id
	}
	if ev.BrowserURL != "" {
		parts := strings.Split(ev.BrowserURL, "/")
		return parts[len(parts)-1]
	}
	return ""
}

// fromIdentifiers only ever looks at the first string entry.
func fromIdentifiers(ids []json.RawMessage) string {
	for _, raw := range ids {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if i := strings.LastIndex(s, ":"); i >= 0 {
			return s[i+1:]
		}
		return s
	}
	return ""
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
