// ABOUTME: Tests for calendar event filtering and attendee observation
// ABOUTME: Events are built in memory and processed against the real linker
package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/kin/models"
)

func timed(at string) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: at}
}

func TestShouldSkipEvent(t *testing.T) {
	pair := []*calendar.EventAttendee{
		{Email: "user@example.com", Self: true},
		{Email: "other@example.com"},
	}
	tests := []struct {
		name   string
		event  *calendar.Event
		skip   bool
		reason string
	}{
		{"nil event", nil, true, "nil event"},
		{"missing start", &calendar.Event{Id: "e1"}, true, "missing start time"},
		{"all-day", &calendar.Event{Start: &calendar.EventDateTime{Date: "2025-11-28"}, Attendees: pair}, true, "all-day event"},
		{"all-day wins over dateTime", &calendar.Event{Start: &calendar.EventDateTime{Date: "2025-11-28", DateTime: "2025-11-28T10:00:00Z"}}, true, "all-day event"},
		{"cancelled", &calendar.Event{Status: "cancelled", Start: timed("2025-11-28T10:00:00Z"), Attendees: pair}, true, "cancelled"},
		{"declined by self", &calendar.Event{Start: timed("2025-11-28T10:00:00Z"), Attendees: []*calendar.EventAttendee{
			{Email: "user@example.com", Self: true, ResponseStatus: "declined"},
			{Email: "other@example.com"},
		}}, true, "declined"},
		{"declined by someone else", &calendar.Event{Start: timed("2025-11-28T10:00:00Z"), Attendees: []*calendar.EventAttendee{
			{Email: "user@example.com", Self: true, ResponseStatus: "accepted"},
			{Email: "other@example.com", ResponseStatus: "declined"},
		}}, false, ""},
		{"no attendees", &calendar.Event{Start: timed("2025-11-28T10:00:00Z")}, true, "solo event (0 attendees)"},
		{"one attendee", &calendar.Event{Start: timed("2025-11-28T10:00:00Z"), Attendees: pair[:1]}, true, "solo event (1 attendee)"},
		{"meeting", &calendar.Event{Start: timed("2025-11-28T10:00:00Z"), Attendees: pair}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, reason := shouldSkipEvent(tt.event, "user@example.com")
			assert.Equal(t, tt.skip, skip)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestProcessEventObservesAttendees(t *testing.T) {
	env := setupImportEnv(t)
	ctx := context.Background()
	ci := NewCalendarImporter(env.linker, env.state, nil, env.out)
	ci.now = func() time.Time { return fixedNow }

	event := &calendar.Event{
		Id:      "evt1",
		Summary: "Roadmap review",
		Start:   timed("2026-05-20T16:00:00Z"),
		Attendees: []*calendar.EventAttendee{
			{Email: "user@example.com", DisplayName: "Me", Self: true},
			{Email: "alice@acme.io", DisplayName: "Alice Chen"},
			{Email: "bob@acme.io"},
			{Email: "room-4@resource.calendar.google.com", DisplayName: "Room 4", Resource: true},
			{DisplayName: "No Email"},
		},
	}

	report := newReport()
	require.NoError(t, ci.ProcessEvent(ctx, report, event, "user@example.com"))
	assert.Equal(t, 2, report.Linked)
	assert.Equal(t, 2, report.Created)

	alice := env.personByEmail(t, "alice@acme.io")
	require.NotNil(t, alice)
	assert.Equal(t, "Alice Chen", alice.CanonicalName)
	assert.NotNil(t, env.personByEmail(t, "bob@acme.io"))
	assert.Nil(t, env.personByEmail(t, "room-4@resource.calendar.google.com"))

	entity, err := env.sources.GetBySource(ctx, models.SourceCalendar, "evt1:alice@acme.io")
	require.NoError(t, err)
	assert.Equal(t, "calendar/acme.io", entity.ContextPath)
	assert.True(t, entity.ObservedAt.Equal(time.Date(2026, 5, 20, 16, 0, 0, 0, time.UTC)))

	require.NoError(t, ci.ProcessEvent(ctx, report, event, "user@example.com"))
	assert.Equal(t, 2, report.Duplicates)
}

func TestProcessEventCountsSkips(t *testing.T) {
	env := setupImportEnv(t)
	ci := NewCalendarImporter(env.linker, env.state, nil, env.out)

	report := newReport()
	require.NoError(t, ci.ProcessEvent(context.Background(), report, &calendar.Event{Start: &calendar.EventDateTime{Date: "2026-05-20"}}, "user@example.com"))
	assert.Equal(t, 1, report.Skipped["all-day event"])
	assert.Zero(t, report.Linked)
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "s", pluralize(0))
	assert.Equal(t, "", pluralize(1))
	assert.Equal(t, "s", pluralize(2))
}
