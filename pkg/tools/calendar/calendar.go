// Package calendar implements the google_calendar tool.
package calendar

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
)

const Name = "google_calendar"

const description = `Manage calendar events.
"create" needs title and start_time; end_time (default: one hour after start), attendees
(email addresses), description and location are optional.
"list" shows events between start_time (default: now) and end_time (default: a week from now),
at most max_results (default 10).
Times may be natural language, for example "tomorrow at 2pm" or "next Monday at 3pm".`

type Input struct {
	Operation   string   `json:"operation" jsonschema:"required,enum=create,enum=list"`
	Title       string   `json:"title,omitempty" jsonschema:"description=Event title (create)"`
	StartTime   string   `json:"start_time,omitempty" jsonschema:"description=Start time"`
	EndTime     string   `json:"end_time,omitempty" jsonschema:"description=End time"`
	Attendees   []string `json:"attendees,omitempty" jsonschema:"description=Attendee email addresses (create)"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	MaxResults  int      `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=50"`
}

type Tool struct {
	svc      EventService
	location *time.Location
	now      func() time.Time
}

type Option func(*Tool)

func WithLocation(loc *time.Location) Option {
	return func(t *Tool) { t.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tool) { t.now = now }
}

func New(svc EventService, opts ...Option) *Tool {
	t := &Tool{svc: svc, location: time.Local, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tool) Adapter() tools.Adapter {
	return tools.NewFuncAdapter(Name, description, t.Run)
}

func (t *Tool) Run(ctx context.Context, in Input) (string, error) {
	switch in.Operation {
	case "create":
		return t.create(ctx, in)
	case "list":
		return t.list(ctx, in)
	case "":
		return "", errors.New("Operation type not specified. Please include 'operation' field with value 'create' or 'list'")
	default:
		return "", errors.Errorf("Invalid operation '%s'. Must be one of: create, list", in.Operation)
	}
}

func (t *Tool) create(ctx context.Context, in Input) (string, error) {
	if in.Title == "" {
		return "", errors.New("Event title is required")
	}
	if in.StartTime == "" {
		return "", errors.New("Start time is required")
	}
	now := t.now()
	start, err := ParseTime(in.StartTime, now, t.location)
	if err != nil {
		return "", err
	}
	end := start.Add(time.Hour)
	if in.EndTime != "" {
		end, err = ParseTime(in.EndTime, now, t.location)
		if err != nil {
			return "", err
		}
	}
	if !end.After(start) {
		return "", errors.New("End time must be after start time")
	}

	created, err := t.svc.Insert(ctx, Event{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Start:       start,
		End:         end,
		Attendees:   in.Attendees,
	})
	if err != nil {
		return "", errors.Wrap(err, "creating event")
	}
	return "Event created: " + created.Link, nil
}

type listedEvent struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Attendees   []string `json:"attendees"`
}

func (t *Tool) list(ctx context.Context, in Input) (string, error) {
	now := t.now().In(t.location)
	from, to := now, now.AddDate(0, 0, 7)
	var err error
	if in.StartTime != "" {
		if from, err = ParseTime(in.StartTime, now, t.location); err != nil {
			return "", err
		}
	}
	if in.EndTime != "" {
		if to, err = ParseTime(in.EndTime, now, t.location); err != nil {
			return "", err
		}
	}
	max := in.MaxResults
	if max <= 0 {
		max = 10
	}

	evs, err := t.svc.List(ctx, from, to, max)
	if err != nil {
		return "", errors.Wrap(err, "listing events")
	}
	if len(evs) == 0 {
		return "No events found in the specified time range.", nil
	}
	out := make([]listedEvent, 0, len(evs))
	for _, e := range evs {
		attendees := e.Attendees
		if attendees == nil {
			attendees = []string{}
		}
		out = append(out, listedEvent{
			ID:          e.ID,
			Title:       e.Title,
			Start:       e.Start.In(t.location).Format("2006-01-02 15:04"),
			End:         e.End.In(t.location).Format("15:04"),
			Location:    e.Location,
			Description: e.Description,
			Attendees:   attendees,
		})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "format events")
	}
	return string(b), nil
}
