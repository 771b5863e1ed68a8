package handlers

import (
	"net/http"

	"github.com/fhdsa/eventbridge/internal/source"
)

// DebugResponse is the raw source API readout. The key itself is never
// included.
type DebugResponse struct {
	Probes           []source.ProbeResult `json:"probes"`
	APIKeyConfigured bool                 `json:"api_key_configured"`
	APIKeyLength     int                  `json:"api_key_length"`
}

// DebugActionNetwork returns a handler that probes the source API.
func DebugActionNetwork(src SourceProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, DebugResponse{
			Probes:           src.Probe(r.Context()),
			APIKeyConfigured: src.Configured(),
			APIKeyLength:     src.APIKeyLength(),
		})
	}
}
