package models

import (
	"time"
)

// Platform identifies a destination calendar/event platform.
type Platform string

// Supported destination platforms.
const (
	PlatformGoogle  Platform = "google"
	PlatformDiscord Platform = "discord"
	PlatformTeamUp  Platform = "teamup"
)

// DisplayName returns the human-facing platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformGoogle:
		return "Google Calendar"
	case PlatformDiscord:
		return "Discord"
	case PlatformTeamUp:
		return "TeamUp"
	default:
		return string(p)
	}
}

// DestinationRef locates one mirrored event on a destination platform.
// CalendarID is the routed calendar (Google) or sub-calendar (TeamUp).
type DestinationRef struct {
	EventID    string `json:"event_id"`
	CalendarID string `json:"calendar_id,omitempty"`
}

// Mapping links one source event to its destination events.
// Each source id holds at most one destination ref per platform.
type Mapping struct {
	SourceID     string                      `json:"source_id"`
	Destinations map[Platform]DestinationRef `json:"destinations"`
	LastModified string                      `json:"last_modified"`
	Status       string                      `json:"status"`
	Title        string                      `json:"title"`
	SourceURL    string                      `json:"source_url,omitempty"`
	RoutedTag    string                      `json:"routed_tag,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// Clone returns a deep copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := m
	out.Destinations = make(map[Platform]DestinationRef, len(m.Destinations))
	for p, ref := range m.Destinations {
		out.Destinations[p] = ref
	}
	return out
}

// Ref returns the recorded destination for a platform, if any.
func (m Mapping) Ref(p Platform) (DestinationRef, bool) {
	ref, ok := m.Destinations[p]
	if !ok || ref.EventID == "" {
		return DestinationRef{}, false
	}
	return ref, true
}

// NeedsUpdate reports whether the source event changed since it was recorded,
// returning a human-readable reason per changed field.
func (m Mapping) NeedsUpdate(lastModified, status string) (bool, []string) {
	var reasons []string
	if lastModified != m.LastModified {
		reasons = append(reasons, "modified_date changed from "+orUnknown(m.LastModified)+" to "+lastModified)
	}
	if status != m.Status {
		reasons = append(reasons, "status changed from "+orUnknown(m.Status)+" to "+status)
	}
	return len(reasons) > 0, reasons
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
