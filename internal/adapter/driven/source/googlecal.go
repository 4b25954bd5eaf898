package source

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

var _ driven.SourceAdapter = (*GoogleCalendarAdapter)(nil)

// GoogleCalendarAdapter fetches upcoming events from the user's primary
// Google calendar via the official API client.
type GoogleCalendarAdapter struct {
	endpoint string // Non-empty only in tests, pointing at an httptest server.
}

// NewGoogleCalendarAdapter creates a GoogleCalendarAdapter. Pass an empty
// endpoint for production; tests supply an httptest server URL.
func NewGoogleCalendarAdapter(endpoint string) *GoogleCalendarAdapter {
	return &GoogleCalendarAdapter{endpoint: endpoint}
}

// Source identifies this adapter.
func (a *GoogleCalendarAdapter) Source() model.SourceType {
	return model.SourceGoogleCalendar
}

// Fetch lists the next 30 days of events on the primary calendar, expanded
// to single instances, normalized to meeting tasks.
func (a *GoogleCalendarAdapter) Fetch(ctx context.Context, accessToken string, _ driven.FetchOptions) ([]model.Task, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if a.endpoint != "" {
		opts = append(opts, option.WithEndpoint(a.endpoint))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	events, err := svc.Events.List("primary").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(30 * 24 * time.Hour).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(100).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &driven.FetchError{
				Source:     model.SourceGoogleCalendar,
				StatusCode: apiErr.Code,
				Body:       apiErr.Message,
			}
		}
		return nil, err
	}

	var tasks []model.Task
	for _, event := range events.Items {
		start, ok := eventTime(event.Start)
		if !ok {
			continue
		}

		// The event is "due" when it ends; events with no usable end time
		// fall back to the start.
		due := start
		if end, ok := eventTime(event.End); ok {
			due = end
		}

		priority := 0
		if start.Sub(now) < 24*time.Hour {
			priority = 1
		}

		meta := map[string]any{
			"location": event.Location,
		}
		if event.Organizer != nil {
			meta["organizer"] = event.Organizer.Email
		}
		if event.HangoutLink != "" {
			meta["hangout_link"] = event.HangoutLink
		}

		tasks = append(tasks, model.Task{
			Title:       event.Summary,
			Description: event.Description,
			Type:        model.TaskTypeMeeting,
			Status:      model.TaskStatusPending,
			Source:      model.SourceGoogleCalendar,
			SourceID:    event.Id,
			DueDate:     &due,
			StartDate:   &start,
			Priority:    priority,
			Metadata:    marshalMetadata(meta),
		})
	}

	return tasks, nil
}

// eventTime extracts a calendar timestamp. Timed events carry DateTime;
// all-day events carry only a Date.
func eventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}

	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}

	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}

	return time.Time{}, false
}
