package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

var _ driven.SourceAdapter = (*OutlookAdapter)(nil)

// graphTimeLayout is the fractional-second layout Microsoft Graph uses for
// calendar dateTime values, which omits the timezone suffix.
const graphTimeLayout = "2006-01-02T15:04:05.9999999"

// careerKeywords flags unread high-importance mail worth surfacing as tasks.
var careerKeywords = []string{"internship", "interview", "application", "job", "opportunity", "position"}

// OutlookAdapter fetches upcoming calendar events and career-related mail
// from the Microsoft Graph API.
type OutlookAdapter struct {
	client  *http.Client
	baseURL string
}

// NewOutlookAdapter creates an OutlookAdapter against the production Graph
// endpoint. Tests override the base URL with NewOutlookAdapterWithBaseURL.
func NewOutlookAdapter(client *http.Client) *OutlookAdapter {
	return NewOutlookAdapterWithBaseURL(client, "https://graph.microsoft.com/v1.0")
}

// NewOutlookAdapterWithBaseURL creates an OutlookAdapter with a custom base
// URL, allowing injection of an httptest server.
func NewOutlookAdapterWithBaseURL(client *http.Client, baseURL string) *OutlookAdapter {
	return &OutlookAdapter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Source identifies this adapter.
func (a *OutlookAdapter) Source() model.SourceType {
	return model.SourceOutlook
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	BodyPreview string        `json:"bodyPreview"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	Location    struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Organizer struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"organizer"`
	OnlineMeetingURL string `json:"onlineMeetingUrl"`
}

type graphMessage struct {
	ID               string `json:"id"`
	Subject          string `json:"subject"`
	BodyPreview      string `json:"bodyPreview"`
	ReceivedDateTime string `json:"receivedDateTime"`
	HasAttachments   bool   `json:"hasAttachments"`
	From             struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
}

// Fetch retrieves the next 30 days of timed calendar events as meeting tasks,
// plus unread high-importance messages matching career keywords as email
// tasks.
func (a *OutlookAdapter) Fetch(ctx context.Context, accessToken string, _ driven.FetchOptions) ([]model.Task, error) {
	now := time.Now().UTC()

	tasks, err := a.fetchEvents(ctx, accessToken, now)
	if err != nil {
		return nil, err
	}

	emails, err := a.fetchCareerMail(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return append(tasks, emails...), nil
}

func (a *OutlookAdapter) fetchEvents(ctx context.Context, accessToken string, now time.Time) ([]model.Task, error) {
	params := url.Values{}
	params.Set("startDateTime", now.Format(time.RFC3339))
	params.Set("endDateTime", now.Add(30*24*time.Hour).Format(time.RFC3339))
	params.Set("$filter", "isAllDay eq false")
	params.Set("$orderby", "start/dateTime")
	params.Set("$top", "50")

	var resp struct {
		Value []graphEvent `json:"value"`
	}
	eventsURL := a.baseURL + "/me/calendar/events?" + params.Encode()
	if err := getJSON(ctx, a.client, model.SourceOutlook, accessToken, eventsURL, &resp); err != nil {
		return nil, err
	}

	var tasks []model.Task
	for _, event := range resp.Value {
		start, err := parseGraphTime(event.Start)
		if err != nil {
			continue
		}

		// The meeting is "due" when it ends; events with no usable end time
		// fall back to the start.
		due := start
		if end, err := parseGraphTime(event.End); err == nil {
			due = end
		}

		priority := 0
		if start.Sub(now) < 24*time.Hour {
			priority = 1
		}

		meta := map[string]any{
			"location":       event.Location.DisplayName,
			"organizer":      event.Organizer.EmailAddress.Address,
			"organizer_name": event.Organizer.EmailAddress.Name,
		}
		if event.OnlineMeetingURL != "" {
			meta["meeting_url"] = event.OnlineMeetingURL
		}

		tasks = append(tasks, model.Task{
			Title:       event.Subject,
			Description: event.BodyPreview,
			Type:        model.TaskTypeMeeting,
			Status:      model.TaskStatusPending,
			Source:      model.SourceOutlook,
			SourceID:    event.ID,
			DueDate:     &due,
			StartDate:   &start,
			Priority:    priority,
			Metadata:    marshalMetadata(meta),
		})
	}

	return tasks, nil
}

func (a *OutlookAdapter) fetchCareerMail(ctx context.Context, accessToken string) ([]model.Task, error) {
	params := url.Values{}
	params.Set("$filter", "isRead eq false and importance eq 'high'")
	params.Set("$top", "50")

	var resp struct {
		Value []graphMessage `json:"value"`
	}
	messagesURL := a.baseURL + "/me/messages?" + params.Encode()
	if err := getJSON(ctx, a.client, model.SourceOutlook, accessToken, messagesURL, &resp); err != nil {
		return nil, err
	}

	var tasks []model.Task
	for _, msg := range resp.Value {
		if !matchesCareerKeyword(msg.Subject) {
			continue
		}

		var due *time.Time
		if received, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
			received = received.UTC()
			due = &received
		}

		tasks = append(tasks, model.Task{
			Title:       "Follow up: " + msg.Subject,
			Description: msg.BodyPreview,
			Type:        model.TaskTypeEmail,
			Status:      model.TaskStatusPending,
			Source:      model.SourceOutlook,
			SourceID:    msg.ID,
			DueDate:     due,
			Priority:    2,
			Metadata: marshalMetadata(map[string]any{
				"sender":          msg.From.EmailAddress.Address,
				"sender_name":     msg.From.EmailAddress.Name,
				"has_attachments": msg.HasAttachments,
			}),
		})
	}

	return tasks, nil
}

func matchesCareerKeyword(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range careerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// parseGraphTime parses a Graph dateTime+timeZone pair. Graph emits
// 7-digit fractional seconds with no offset; the zone arrives separately
// and is almost always UTC when requested with the default Prefer header.
func parseGraphTime(dt graphDateTime) (time.Time, error) {
	loc := time.UTC
	if dt.TimeZone != "" && dt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}

	if t, err := time.ParseInLocation(graphTimeLayout, dt.DateTime, loc); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse(time.RFC3339, dt.DateTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse graph time %q: %w", dt.DateTime, err)
	}
	return t.UTC(), nil
}
