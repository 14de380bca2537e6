package calendar

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Link        string
}

// EventService is the calendar backend.
type EventService interface {
	Insert(ctx context.Context, e Event) (*Event, error)
	List(ctx context.Context, from, to time.Time, max int) ([]Event, error)
}

// GoogleService stores events in the primary Google calendar.
type GoogleService struct {
	svc      *gcal.Service
	location *time.Location
}

var _ EventService = (*GoogleService)(nil)

// NewGoogleService authenticates with an already authorized token file.
// Obtaining or refreshing the token interactively is left to other tools.
func NewGoogleService(ctx context.Context, credentialsFile, tokenFile string, loc *time.Location) (*GoogleService, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "read calendar credentials")
	}
	config, err := google.ConfigFromJSON(creds, gcal.CalendarScope)
	if err != nil {
		return nil, errors.Wrap(err, "parse calendar credentials")
	}
	b, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, errors.Wrap(err, "read calendar token")
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, errors.Wrap(err, "parse calendar token")
	}
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, errors.Wrap(err, "create calendar service")
	}
	return &GoogleService{svc: svc, location: loc}, nil
}

func (g *GoogleService) Insert(ctx context.Context, e Event) (*Event, error) {
	ev := &gcal.Event{
		Summary:     e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       &gcal.EventDateTime{DateTime: e.Start.Format(time.RFC3339), TimeZone: g.location.String()},
		End:         &gcal.EventDateTime{DateTime: e.End.Format(time.RFC3339), TimeZone: g.location.String()},
	}
	for _, a := range e.Attendees {
		ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: a})
	}
	created, err := g.svc.Events.Insert("primary", ev).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "insert event")
	}
	ret := fromGoogle(created, g.location)
	return &ret, nil
}

func (g *GoogleService) List(ctx context.Context, from, to time.Time, max int) ([]Event, error) {
	res, err := g.svc.Events.List("primary").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(int64(max)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	ret := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		ret = append(ret, fromGoogle(item, g.location))
	}
	return ret, nil
}

func fromGoogle(ev *gcal.Event, loc *time.Location) Event {
	e := Event{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Link:        ev.HtmlLink,
		Start:       parseEventTime(ev.Start, loc),
		End:         parseEventTime(ev.End, loc),
	}
	for _, a := range ev.Attendees {
		e.Attendees = append(e.Attendees, a.Email)
	}
	return e
}

func parseEventTime(dt *gcal.EventDateTime, loc *time.Location) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.In(loc)
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
