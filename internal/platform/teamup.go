package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/normalize"
	"github.com/fhdsa/eventbridge/internal/routing"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// DefaultTeamUpBaseURL is the TeamUp API root.
const DefaultTeamUpBaseURL = "https://api.teamup.com"

// TeamUpConfig holds TeamUp API credentials.
type TeamUpConfig struct {
	BaseURL     string
	APIKey      string
	CalendarKey string
	Timeout     time.Duration
}

// TeamUp mirrors events into hashtag-routed TeamUp sub-calendars.
type TeamUp struct {
	config   TeamUpConfig
	client   restClient
	resolver *routing.Resolver
	logger   *zap.Logger
}

// NewTeamUp creates a TeamUp adapter.
func NewTeamUp(config TeamUpConfig, resolver *routing.Resolver, logger *zap.Logger) *TeamUp {
	if config.BaseURL == "" {
		config.BaseURL = DefaultTeamUpBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	key := config.APIKey
	root := config.BaseURL + "/" + url.PathEscape(config.CalendarKey)
	return &TeamUp{
		config: config,
		client: newRESTClient(models.PlatformTeamUp, root, config.Timeout, func(h http.Header) {
			h.Set("Teamup-Token", key)
		}),
		resolver: resolver,
		logger:   logger.Named("teamup"),
	}
}

type teamUpEvent struct {
	ID             string `json:"id,omitempty"`
	SubcalendarIDs []int  `json:"subcalendar_ids"`
	Title          string `json:"title"`
	Notes          string `json:"notes"`
	Location       string `json:"location"`
	StartDT        string `json:"start_dt"`
	EndDT          string `json:"end_dt"`
	AllDay         bool   `json:"all_day"`
}

type teamUpEnvelope struct {
	Event struct {
		ID json.RawMessage `json:"id"`
	} `json:"event"`
}

// Platform implements Adapter.
func (t *TeamUp) Platform() models.Platform {
	return models.PlatformTeamUp
}

// Configured implements Adapter.
func (t *TeamUp) Configured() bool {
	return t.config.APIKey != "" && t.config.CalendarKey != ""
}

// Resolver exposes the sub-calendar routing table.
func (t *TeamUp) Resolver() *routing.Resolver {
	return t.resolver
}

func (t *TeamUp) payload(ev models.Event, subcalendar string) (teamUpEvent, error) {
	id, err := strconv.Atoi(subcalendar)
	if err != nil {
		return teamUpEvent{}, fmt.Errorf("invalid sub-calendar id %q: %w", subcalendar, err)
	}
	return teamUpEvent{
		SubcalendarIDs: []int{id},
		Title:          ev.Title,
		Notes:          normalize.WithRegistrationHTML(ev.Description, ev.RegistrationURL),
		Location:       ev.Location,
		StartDT:        ev.Start,
		EndDT:          ev.End,
	}, nil
}

// Create implements Adapter. TeamUp answers 201 with the created event.
func (t *TeamUp) Create(ctx context.Context, ev models.Event) (models.DestinationRef, error) {
	tag, subcalendar := t.resolver.Resolve(ev.Description)
	if subcalendar == "" {
		logFailure(t.logger, "create", ErrNotRouted, zap.String("title", ev.Title))
		return models.DestinationRef{}, ErrNotRouted
	}

	body, err := t.payload(ev, subcalendar)
	if err != nil {
		logFailure(t.logger, "create", err, zap.String("title", ev.Title))
		return models.DestinationRef{}, err
	}

	var created teamUpEnvelope
	if err := t.client.do(ctx, "create", http.MethodPost, "/events", body, &created, http.StatusCreated); err != nil {
		logFailure(t.logger, "create", err, zap.String("title", ev.Title))
		return models.DestinationRef{}, err
	}
	id := rawID(created.Event.ID)
	if id == "" {
		err := fmt.Errorf("teamup create: response without event id")
		logFailure(t.logger, "create", err, zap.String("title", ev.Title))
		return models.DestinationRef{}, err
	}

	t.logger.Info("created event",
		zap.String("title", ev.Title),
		zap.String("event_id", id),
		zap.String("subcalendar", t.resolver.NameFor(subcalendar)),
		zap.String("hashtag", tag))
	return models.DestinationRef{EventID: id, CalendarID: subcalendar}, nil
}

// Update implements Adapter. TeamUp answers 200 to a PUT.
func (t *TeamUp) Update(ctx context.Context, ref models.DestinationRef, ev models.Event) error {
	body, err := t.payload(ev, ref.CalendarID)
	if err != nil {
		logFailure(t.logger, "update", err, zap.String("event_id", ref.EventID))
		return err
	}
	body.ID = ref.EventID

	path := "/events/" + url.PathEscape(ref.EventID)
	if err := t.client.do(ctx, "update", http.MethodPut, path, body, nil, http.StatusOK); err != nil {
		logFailure(t.logger, "update", err, zap.String("event_id", ref.EventID))
		return err
	}
	t.logger.Info("updated event", zap.String("title", ev.Title), zap.String("event_id", ref.EventID))
	return nil
}

// Delete implements Adapter. TeamUp answers 204.
func (t *TeamUp) Delete(ctx context.Context, ref models.DestinationRef) error {
	path := "/events/" + url.PathEscape(ref.EventID)
	if err := t.client.do(ctx, "delete", http.MethodDelete, path, nil, nil, http.StatusNoContent); err != nil {
		logFailure(t.logger, "delete", err, zap.String("event_id", ref.EventID))
		return err
	}
	t.logger.Info("deleted event", zap.String("event_id", ref.EventID))
	return nil
}

// TestConnection implements Adapter by listing sub-calendars.
func (t *TeamUp) TestConnection(ctx context.Context) bool {
	if !t.Configured() {
		return false
	}
	if err := t.client.do(ctx, "test connection", http.MethodGet, "/subcalendars", nil, nil, http.StatusOK); err != nil {
		logFailure(t.logger, "test connection", err)
		return false
	}
	return true
}

func rawID(raw json.RawMessage) string {
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
