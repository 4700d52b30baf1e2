// ABOUTME: Google Calendar importer that observes the attendees of real meetings
// ABOUTME: Sync tokens drive incremental runs; a 410 falls back to a time window
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/models"
)

const (
	calendarService    = "calendar"
	maxCalendarResults = 250
	calendarLookback   = 6 // months
)

// CalendarImporter links meeting attendees into the person directory.
type CalendarImporter struct {
	importer
	now func() time.Time
}

func NewCalendarImporter(linker Linker, state StateStore, logger *slog.Logger, out io.Writer) *CalendarImporter {
	return &CalendarImporter{importer: newImporter(calendarService, linker, state, logger, out), now: time.Now}
}

// shouldSkipEvent returns the reason an event is not a meeting with other people.
func shouldSkipEvent(event *calendar.Event, userEmail string) (bool, string) {
	if event == nil {
		return true, "nil event"
	}
	if event.Start == nil {
		return true, "missing start time"
	}
	if event.Start.Date != "" {
		return true, "all-day event"
	}
	if event.Status == "cancelled" {
		return true, "cancelled"
	}
	for _, attendee := range event.Attendees {
		if attendee.Self && attendee.ResponseStatus == "declined" {
			return true, "declined"
		}
	}
	if n := len(event.Attendees); n <= 1 {
		return true, fmt.Sprintf("solo event (%d attendee%s)", n, pluralize(n))
	}
	return false, ""
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

// ProcessEvent observes every attendee except the user and meeting rooms.
func (ci *CalendarImporter) ProcessEvent(ctx context.Context, report *Report, event *calendar.Event, userEmail string) error {
	if skip, reason := shouldSkipEvent(event, userEmail); skip {
		report.skip(reason)
		return nil
	}

	observedAt, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		observedAt = ci.now()
	}

	for _, attendee := range event.Attendees {
		email := strings.TrimSpace(attendee.Email)
		if attendee.Self || attendee.Resource || email == "" || strings.EqualFold(email, userEmail) {
			continue
		}
		sourceID := event.Id + ":" + strings.ToLower(email)
		obs := linking.Observation{
			SourceType:  models.SourceCalendar,
			SourceID:    sourceID,
			Name:        attendee.DisplayName,
			Email:       email,
			ContextPath: "calendar/" + emailDomain(email),
			ObservedAt:  observedAt.UTC(),
		}
		if _, err := ci.linkOnce(ctx, report, sourceID, obs, event.Summary); err != nil {
			return err
		}
	}
	return nil
}

// Import fetches timed events. Without a usable sync token it looks back six months.
func (ci *CalendarImporter) Import(ctx context.Context, client *calendar.Service, initial bool) (*Report, error) {
	_, _ = fmt.Fprintln(ci.out, "Syncing Google Calendar...")
	if err := ci.begin(ctx); err != nil {
		return nil, err
	}

	info, err := client.CalendarList.Get("primary").Context(ctx).Do()
	if err != nil {
		return nil, ci.fail(ctx, fmt.Errorf("failed to get user calendar info: %w", err))
	}
	userEmail := info.Id

	state, err := ci.state.GetSyncState(ctx, ci.service)
	if err != nil {
		return nil, ci.fail(ctx, fmt.Errorf("failed to get sync state: %w", err))
	}

	syncToken := ""
	if !initial && state != nil {
		syncToken = state.LastSyncToken
	}
	since := ci.now().AddDate(0, -calendarLookback, 0)
	if syncToken != "" {
		_, _ = fmt.Fprintln(ci.out, "  → Incremental sync...")
	} else {
		_, _ = fmt.Fprintf(ci.out, "  → Fetching the last %d months...\n", calendarLookback)
	}

	report := newReport()
	nextToken, err := ci.fetch(ctx, client, report, userEmail, syncToken, since)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 410 {
		_, _ = fmt.Fprintln(ci.out, "  → Sync token invalid, falling back to time-based sync...")
		if state != nil && state.LastSyncTime != nil {
			since = *state.LastSyncTime
		}
		nextToken, err = ci.fetch(ctx, client, report, userEmail, "", since)
	}
	if err != nil {
		return nil, ci.fail(ctx, err)
	}

	if err := ci.state.UpdateSyncToken(ctx, ci.service, nextToken); err != nil {
		return nil, ci.fail(ctx, fmt.Errorf("failed to update sync token: %w", err))
	}
	report.Print(ci.out)
	return report, nil
}

// fetch pages through events and returns the sync token for the next run.
func (ci *CalendarImporter) fetch(ctx context.Context, client *calendar.Service, report *Report, userEmail, syncToken string, since time.Time) (string, error) {
	call := client.Events.List("primary").
		MaxResults(maxCalendarResults).
		SingleEvents(true).
		Context(ctx)
	if syncToken != "" {
		call = call.SyncToken(syncToken)
	} else {
		call = call.TimeMin(since.Format(time.RFC3339))
	}

	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		events, err := call.Do()
		if err != nil {
			return "", fmt.Errorf("failed to fetch calendar events: %w", err)
		}

		report.Fetched += len(events.Items)
		for _, event := range events.Items {
			if err := ci.ProcessEvent(ctx, report, event, userEmail); err != nil {
				_, _ = fmt.Fprintf(ci.out, "  ✗ Failed to process event %s: %v\n", event.Id, err)
				ci.logger.Warn("calendar event failed", "event_id", event.Id, "error", err)
			}
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			return events.NextSyncToken, nil
		}
	}
}
