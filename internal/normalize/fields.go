package normalize

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// UntitledEvent is the summary used when the source event has no title.
const UntitledEvent = "Untitled Event"

// DiscordDescriptionLimit is the maximum description length Discord accepts
// for scheduled events.
const DiscordDescriptionLimit = 1000

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// sourceLocation is the structured location object Action Network returns.
type sourceLocation struct {
	Venue        string   `json:"venue"`
	AddressLines []string `json:"address_lines"`
	Locality     string   `json:"locality"`
	Region       string   `json:"region"`
	PostalCode   string   `json:"postal_code"`
}

// Normalize builds the canonical event for a source event.
func Normalize(src models.SourceEvent, sourceID string) models.Event {
	start := ToUTC(src.RawStart())
	end := EndOrDefault(start, ToUTC(src.RawEnd()))

	return models.Event{
		SourceID:        sourceID,
		Title:           src.TitleOr(UntitledEvent),
		Description:     src.Description,
		RegistrationURL: src.BrowserURL,
		Start:           start,
		End:             end,
		Location:        Location(src.Location),
		Status:          src.StatusOrDefault(),
		LastModified:    src.ModifiedDate,
	}
}

// Location flattens a location value into a single line.
// Objects are joined from their non-empty parts, strings pass through and
// anything else becomes empty.
func Location(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var loc sourceLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return ""
	}

	parts := make([]string, 0, 4+len(loc.AddressLines))
	if loc.Venue != "" {
		parts = append(parts, loc.Venue)
	}
	for _, line := range loc.AddressLines {
		if line != "" {
			parts = append(parts, line)
		}
	}
	for _, p := range []string{loc.Locality, loc.Region, loc.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// WithRegistration appends a plain-text registration line.
func WithRegistration(description, url string) string {
	if url == "" {
		return description
	}
	if description == "" {
		return "Register: " + url
	}
	return description + "\n\nRegister: " + url
}

// WithRegistrationHTML appends a registration link as HTML markup.
func WithRegistrationHTML(description, url string) string {
	if url == "" {
		return description
	}
	escaped := html.EscapeString(url)
	link := fmt.Sprintf(`<p>Register: <a href="%s">%s</a></p>`, escaped, escaped)
	if description == "" {
		return link
	}
	return description + "\n" + link
}

// PlainText strips HTML tags and collapses runs of whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Truncate shortens s to at most limit runes, ending in "..." when cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-3]) + "..."
}

// DiscordDescription renders a description for a Discord scheduled event.
func DiscordDescription(description, url string) string {
	return Truncate(WithRegistration(PlainText(description), url), DiscordDescriptionLimit)
}
