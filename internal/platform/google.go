package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/fhdsa/eventbridge/internal/normalize"
	"github.com/fhdsa/eventbridge/internal/routing"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// GoogleConfig holds Google Calendar service account credentials.
type GoogleConfig struct {
	// ServiceAccountJSON is the raw service account key file contents.
	ServiceAccountJSON string

	// Timeout for API requests.
	Timeout time.Duration
}

// Google mirrors events into hashtag-routed Google calendars.
type Google struct {
	service  *calendar.Service
	resolver *routing.Resolver
	logger   *zap.Logger
}

// NewGoogle creates a Google Calendar adapter authenticated with a service
// account. Without credentials the adapter is returned unconfigured.
func NewGoogle(ctx context.Context, config GoogleConfig, resolver *routing.Resolver, logger *zap.Logger) (*Google, error) {
	g := &Google{resolver: resolver, logger: logger.Named("google")}
	if config.ServiceAccountJSON == "" {
		return g, nil
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(config.ServiceAccountJSON), calendar.CalendarScope)
	if err != nil {
		return g, fmt.Errorf("parsing service account credentials: %w", err)
	}
	httpClient := jwtConfig.Client(ctx)
	if config.Timeout > 0 {
		httpClient.Timeout = config.Timeout
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return g, fmt.Errorf("creating calendar service: %w", err)
	}
	g.service = service
	return g, nil
}

// NewGoogleWithService creates an adapter around an existing calendar service.
func NewGoogleWithService(service *calendar.Service, resolver *routing.Resolver, logger *zap.Logger) *Google {
	return &Google{service: service, resolver: resolver, logger: logger.Named("google")}
}

// Platform implements Adapter.
func (g *Google) Platform() models.Platform {
	return models.PlatformGoogle
}

// Configured implements Adapter.
func (g *Google) Configured() bool {
	return g.service != nil
}

// Resolver exposes the calendar routing table.
func (g *Google) Resolver() *routing.Resolver {
	return g.resolver
}

func (g *Google) payload(ev models.Event) *calendar.Event {
	return &calendar.Event{
		Summary:     ev.Title,
		Description: normalize.WithRegistration(ev.Description, ev.RegistrationURL),
		Location:    ev.Location,
		Start:       &calendar.EventDateTime{DateTime: ev.Start, TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: ev.End, TimeZone: "UTC"},
	}
}

// Create implements Adapter, inserting into the calendar picked by hashtag.
func (g *Google) Create(ctx context.Context, ev models.Event) (models.DestinationRef, error) {
	tag, calendarID := g.resolver.Resolve(ev.Description)
	if calendarID == "" {
		logFailure(g.logger, "create", ErrNotRouted, zap.String("title", ev.Title))
		return models.DestinationRef{}, ErrNotRouted
	}

	created, err := g.service.Events.Insert(calendarID, g.payload(ev)).Context(ctx).Do()
	if err != nil {
		err = googleError("create", err)
		logFailure(g.logger, "create", err, zap.String("title", ev.Title))
		return models.DestinationRef{}, err
	}

	g.logger.Info("created event",
		zap.String("title", ev.Title),
		zap.String("event_id", created.Id),
		zap.String("calendar", g.resolver.NameFor(calendarID)),
		zap.String("hashtag", tag))
	return models.DestinationRef{EventID: created.Id, CalendarID: calendarID}, nil
}

// Update implements Adapter on the calendar recorded at creation.
func (g *Google) Update(ctx context.Context, ref models.DestinationRef, ev models.Event) error {
	if ref.CalendarID == "" {
		err := fmt.Errorf("google update: %w", ErrNotRouted)
		logFailure(g.logger, "update", err, zap.String("event_id", ref.EventID))
		return err
	}

	if _, err := g.service.Events.Update(ref.CalendarID, ref.EventID, g.payload(ev)).Context(ctx).Do(); err != nil {
		err = googleError("update", err)
		logFailure(g.logger, "update", err, zap.String("event_id", ref.EventID))
		return err
	}
	g.logger.Info("updated event", zap.String("title", ev.Title), zap.String("event_id", ref.EventID))
	return nil
}

// Delete implements Adapter.
func (g *Google) Delete(ctx context.Context, ref models.DestinationRef) error {
	if ref.CalendarID == "" {
		err := fmt.Errorf("google delete: %w", ErrNotRouted)
		logFailure(g.logger, "delete", err, zap.String("event_id", ref.EventID))
		return err
	}

	if err := g.service.Events.Delete(ref.CalendarID, ref.EventID).Context(ctx).Do(); err != nil {
		err = googleError("delete", err)
		logFailure(g.logger, "delete", err, zap.String("event_id", ref.EventID))
		return err
	}
	g.logger.Info("deleted event", zap.String("event_id", ref.EventID))
	return nil
}

// TestConnection implements Adapter by listing calendars.
func (g *Google) TestConnection(ctx context.Context) bool {
	if !g.Configured() {
		return false
	}
	if _, err := g.service.CalendarList.List().MaxResults(1).Context(ctx).Do(); err != nil {
		logFailure(g.logger, "test connection", googleError("test connection", err))
		return false
	}
	return true
}

// googleError maps SDK errors onto StatusError so all adapters report alike.
func googleError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &StatusError{
			Platform:   models.PlatformGoogle,
			Op:         op,
			StatusCode: gerr.Code,
			Body:       body,
		}
	}
	return fmt.Errorf("google %s: %w", op, err)
}
