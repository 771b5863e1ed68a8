package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

func rawList(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		name string
		ev   models.SourceEvent
		want string
	}{
		{
			name: "namespaced identifier",
			ev:   models.SourceEvent{Identifiers: rawList(`"action_network:abc-123"`)},
			want: "abc-123",
		},
		{
			name: "suffix after last colon",
			ev:   models.SourceEvent{Identifiers: rawList(`"a:b:c"`)},
			want: "c",
		},
		{
			name: "plain identifier",
			ev:   models.SourceEvent{Identifiers: rawList(`"plain-id"`, `"action_network:later"`)},
			want: "plain-id",
		},
		{
			name: "non-string identifiers skipped",
			ev:   models.SourceEvent{Identifiers: rawList(`42`, `null`, `{"x":1}`, `"action_network:xyz"`)},
			want: "xyz",
		},
		{
			name: "id field fallback",
			ev:   models.SourceEvent{ID: json.RawMessage(`"evt-9"`)},
			want: "evt-9",
		},
		{
			name: "numeric id field",
			ev:   models.SourceEvent{ID: json.RawMessage(`981`)},
			want: "981",
		},
		{
			name: "empty suffix falls through to id",
			ev:   models.SourceEvent{Identifiers: rawList(`"action_network:"`), ID: json.RawMessage(`"evt-9"`)},
			want: "evt-9",
		},
		{
			name: "browser url fallback",
			ev:   models.SourceEvent{BrowserURL: "https://actionnetwork.org/events/summer-picnic"},
			want: "summer-picnic",
		},
		{
			name: "identifiers beat browser url",
			ev: models.SourceEvent{
				Identifiers: rawList(`"action_network:abc"`),
				BrowserURL:  "https://actionnetwork.org/events/summer-picnic",
			},
			want: "abc",
		},
		{
			name: "nothing usable",
			ev:   models.SourceEvent{Title: "orphan"},
			want: "",
		},
		{
			name: "trailing slash url yields nothing",
			ev:   models.SourceEvent{BrowserURL: "https://actionnetwork.org/events/"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractID(tt.ev))
		})
	}
}
