package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/normalize"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// DefaultDiscordBaseURL is the Discord REST API v10 root.
const DefaultDiscordBaseURL = "https://discord.com/api/v10"

// Discord scheduled event constants.
const (
	discordPrivacyGuildOnly = 2
	discordEntityExternal   = 3
	discordDefaultLocation  = "TBD"
)

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BaseURL  string
	BotToken string
	GuildID  string
	Timeout  time.Duration
}

// Discord mirrors events as guild scheduled events.
type Discord struct {
	config DiscordConfig
	client restClient
	logger *zap.Logger
}

// NewDiscord creates a Discord adapter.
func NewDiscord(config DiscordConfig, logger *zap.Logger) *Discord {
	if config.BaseURL == "" {
		config.BaseURL = DefaultDiscordBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	token := config.BotToken
	return &Discord{
		config: config,
		client: newRESTClient(models.PlatformDiscord, config.BaseURL, config.Timeout, func(h http.Header) {
			h.Set("Authorization", "Bot "+token)
		}),
		logger: logger.Named("discord"),
	}
}

type discordMetadata struct {
	Location string `json:"location"`
}

type discordEvent struct {
	ID                 string          `json:"id,omitempty"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	ScheduledStartTime string          `json:"scheduled_start_time"`
	ScheduledEndTime   string          `json:"scheduled_end_time"`
	PrivacyLevel       int             `json:"privacy_level,omitempty"`
	EntityType         int             `json:"entity_type,omitempty"`
	EntityMetadata     discordMetadata `json:"entity_metadata"`
}

// Platform implements Adapter.
func (d *Discord) Platform() models.Platform {
	return models.PlatformDiscord
}

// Configured implements Adapter.
func (d *Discord) Configured() bool {
	return d.config.BotToken != "" && d.config.GuildID != ""
}

func (d *Discord) payload(ev models.Event) discordEvent {
	location := ev.Location
	if location == "" {
		location = discordDefaultLocation
	}
	return discordEvent{
		Name:               ev.Title,
		Description:        normalize.DiscordDescription(ev.Description, ev.RegistrationURL),
		ScheduledStartTime: ev.Start,
		ScheduledEndTime:   ev.End,
		EntityMetadata:     discordMetadata{Location: location},
	}
}

func (d *Discord) eventsPath() string {
	return "/guilds/" + url.PathEscape(d.config.GuildID) + "/scheduled-events"
}

// Create implements Adapter. Discord answers 200 with the created event.
func (d *Discord) Create(ctx context.Context, ev models.Event) (models.DestinationRef, error) {
	body := d.payload(ev)
	body.PrivacyLevel = discordPrivacyGuildOnly
	body.EntityType = discordEntityExternal

	var created discordEvent
	if err := d.client.do(ctx, "create", http.MethodPost, d.eventsPath(), body, &created, http.StatusOK); err != nil {
		logFailure(d.logger, "create", err, zap.String("title", ev.Title))
		return models.DestinationRef{}, err
	}
	if created.ID == "" {
		err := fmt.Errorf("discord create: response without event id")
		logFailure(d.logger, "create", err, zap.String("title", ev.Title))
		return models.DestinationRef{}, err
	}

	d.logger.Info("created scheduled event", zap.String("title", ev.Title), zap.String("event_id", created.ID))
	return models.DestinationRef{EventID: created.ID}, nil
}

// Update implements Adapter. Discord answers 200 to a PATCH.
func (d *Discord) Update(ctx context.Context, ref models.DestinationRef, ev models.Event) error {
	path := d.eventsPath() + "/" + url.PathEscape(ref.EventID)
	if err := d.client.do(ctx, "update", http.MethodPatch, path, d.payload(ev), nil, http.StatusOK); err != nil {
		logFailure(d.logger, "update", err, zap.String("event_id", ref.EventID))
		return err
	}
	d.logger.Info("updated scheduled event", zap.String("title", ev.Title), zap.String("event_id", ref.EventID))
	return nil
}

// Delete implements Adapter. Discord answers 204.
func (d *Discord) Delete(ctx context.Context, ref models.DestinationRef) error {
	path := d.eventsPath() + "/" + url.PathEscape(ref.EventID)
	if err := d.client.do(ctx, "delete", http.MethodDelete, path, nil, nil, http.StatusNoContent); err != nil {
		logFailure(d.logger, "delete", err, zap.String("event_id", ref.EventID))
		return err
	}
	d.logger.Info("deleted scheduled event", zap.String("event_id", ref.EventID))
	return nil
}

// TestConnection implements Adapter by reading the guild.
func (d *Discord) TestConnection(ctx context.Context) bool {
	if !d.Configured() {
		return false
	}
	path := "/guilds/" + url.PathEscape(d.config.GuildID)
	if err := d.client.do(ctx, "test connection", http.MethodGet, path, nil, nil, http.StatusOK); err != nil {
		logFailure(d.logger, "test connection", err)
		return false
	}
	return true
}
