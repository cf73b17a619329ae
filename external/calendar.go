package external

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tidwall/gjson"
)

// ErrNoCalendarAccess is returned when no configured account could create
// an event.
var ErrNoCalendarAccess = errors.New("Failed to create event - no calendar access")

// Event is a calendar entry as the dashboard shows it.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	HTMLLink    string `json:"htmlLink,omitempty"`
}

// EventList is the result of listing upcoming events. Source names the
// account that answered; Error is set when none did.
type EventList struct {
	Events []Event `json:"events"`
	Source string  `json:"source,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// NewEvent is a request to create a calendar entry.
type NewEvent struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Calendar reads and writes events through the calendar CLI, trying each
// account in order.
type Calendar struct {
	Runner   Runner
	Bin      string
	Accounts []string
	Env      map[string]string
	Logger   *slog.Logger
}

func (c *Calendar) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// List returns the events of the first account that has any. An account
// that errors is skipped.
func (c *Calendar) List(ctx context.Context) EventList {
	for _, account := range c.Accounts {
		out, err := c.Runner.Run(ctx, Command{
			Name: c.Bin,
			Args: []string{"calendar", "list", "--json", "-a", account},
			Env:  envList(c.Env),
		})
		if err != nil {
			c.logger().Debug("calendar list failed", slog.String("account", account), slog.Any("err", err))
			continue
		}
		events := parseEvents(out.Stdout)
		if len(events) > 0 {
			return EventList{Events: events, Source: account}
		}
	}
	return EventList{Events: []Event{}, Error: "No calendar access"}
}

func parseEvents(raw string) []Event {
	if !gjson.Valid(raw) {
		return nil
	}
	var events []Event
	gjson.Get(raw, "events").ForEach(func(_, e gjson.Result) bool {
		events = append(events, Event{
			ID:          e.Get("id").String(),
			Title:       e.Get("summary").String(),
			Start:       firstOf(e, "start.dateTime", "start.date"),
			End:         firstOf(e, "end.dateTime", "end.date"),
			Location:    e.Get("location").String(),
			Description: e.Get("description").String(),
			HTMLLink:    e.Get("htmlLink").String(),
		})
		return true
	})
	return events
}

func firstOf(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}

// Create adds an event on the primary calendar of the first account that
// accepts it.
func (c *Calendar) Create(ctx context.Context, ev NewEvent) (*NewEvent, error) {
	for _, account := range c.Accounts {
		args := []string{"calendar", "create", "primary", "-a", account}
		if ev.Title != "" {
			args = append(args, "--summary", ev.Title)
		}
		if ev.Start != "" {
			args = append(args, "--from", ev.Start)
		}
		if ev.End != "" {
			args = append(args, "--to", ev.End)
		}
		if ev.Description != "" {
			args = append(args, "--description", ev.Description)
		}
		if ev.Location != "" {
			args = append(args, "--location", ev.Location)
		}
		if _, err := c.Runner.Run(ctx, Command{Name: c.Bin, Args: args, Env: envList(c.Env)}); err != nil {
			c.logger().Warn("calendar create failed", slog.String("account", account), slog.Any("err", err))
			continue
		}
		created := NewEvent{Title: ev.Title, Start: ev.Start, End: ev.End}
		return &created, nil
	}
	return nil, ErrNoCalendarAccess
}
