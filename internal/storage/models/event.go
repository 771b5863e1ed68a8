// Package models contains the domain models for the application.
package models

import (
	"encoding/json"
)

// Source event status values.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// SourceEvent is an event as returned by the Action Network events API.
// It is a read-only snapshot of one fetch.
type SourceEvent struct {
	Identifiers  []json.RawMessage `json:"identifiers,omitempty"`
	ID           json.RawMessage   `json:"id,omitempty"`
	Title        string            `json:"title,omitempty"`
	Description  string            `json:"description,omitempty"`
	Status       string            `json:"status,omitempty"`
	StartDate    *string           `json:"start_date,omitempty"`
	StartTime    *string           `json:"start_time,omitempty"`
	EndDate      *string           `json:"end_date,omitempty"`
	EndTime      *string           `json:"end_time,omitempty"`
	Location     json.RawMessage   `json:"location,omitempty"`
	BrowserURL   string            `json:"browser_url,omitempty"`
	ModifiedDate string            `json:"modified_date,omitempty"`
}

// StatusOrDefault returns the event status, treating a missing status as confirmed.
func (e SourceEvent) StatusOrDefault() string {
	if e.Status == "" {
		return StatusConfirmed
	}
	return e.Status
}

// IsCancelled reports whether the organizer cancelled the event.
func (e SourceEvent) IsCancelled() bool {
	return e.StatusOrDefault() == StatusCancelled
}

// TitleOr returns the title, or fallback when the title is empty.
func (e SourceEvent) TitleOr(fallback string) string {
	if e.Title == "" {
		return fallback
	}
	return e.Title
}

// RawStart returns start_date when present, otherwise start_time.
func (e SourceEvent) RawStart() string {
	return firstPresent(e.StartDate, e.StartTime)
}

// RawEnd returns end_date when present, otherwise end_time.
func (e SourceEvent) RawEnd() string {
	return firstPresent(e.EndDate, e.EndTime)
}

func firstPresent(primary, fallback *string) string {
	if primary != nil {
		return *primary
	}
	if fallback != nil {
		return *fallback
	}
	return ""
}

// Event is the canonical, destination-agnostic shape of a source event.
// It is rebuilt from a SourceEvent on every transform and never mutated.
type Event struct {
	SourceID        string `json:"source_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	RegistrationURL string `json:"registration_url,omitempty"`
	Start           string `json:"start,omitempty"` // ISO-8601, UTC when convertible
	End             string `json:"end,omitempty"`
	Location        string `json:"location,omitempty"`
	Status          string `json:"status"`
	LastModified    string `json:"last_modified,omitempty"`
}
