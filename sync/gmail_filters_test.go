// ABOUTME: Tests for Gmail query building, high-signal filtering and address parsing
// ABOUTME: Table-driven over representative headers from real inboxes
package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/gmail/v1"
)

func message(mime string, headers ...string) *gmail.Message {
	part := &gmail.MessagePart{MimeType: mime}
	for i := 0; i+1 < len(headers); i += 2 {
		part.Headers = append(part.Headers, &gmail.MessagePartHeader{Name: headers[i], Value: headers[i+1]})
	}
	return &gmail.Message{Id: "m1", ThreadId: "t1", Payload: part}
}

func TestBuildHighSignalQuery(t *testing.T) {
	got := BuildHighSignalQuery("user@example.com", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC))
	assert.Equal(t, "(from:me is:replied) OR (to:me is:replied) OR is:starred after:2024/03/05 -in:spam -in:trash", got)
}

func TestIsHighSignalEmail(t *testing.T) {
	tests := []struct {
		name    string
		msg     *gmail.Message
		wantOk  bool
		wantMsg string
	}{
		{"nil message", nil, false, "nil message"},
		{"noreply sender", message("", "From", "noreply@example.com", "To", "user@example.com", "Subject", "Welcome aboard"), false, "automated sender"},
		{"notifications sender", message("", "From", "notifications@github.com", "To", "user@example.com", "Subject", "New issue"), false, "automated sender"},
		{"five in To", message("", "From", "person@example.com", "To", "a@x.com, b@x.com, c@x.com, d@x.com, e@x.com", "Subject", "Team meeting"), false, "group email (5 recipients)"},
		{"To plus Cc", message("", "From", "person@example.com", "To", "a@x.com, b@x.com, c@x.com", "Cc", "d@x.com, e@x.com", "Subject", "Project update"), false, "group email (5 recipients)"},
		{"calendar mime", message("text/calendar", "From", "person@example.com", "To", "user@example.com", "Subject", "Meeting tomorrow"), false, "calendar invite"},
		{"invitation subject", message("", "From", "person@example.com", "To", "user@example.com", "Subject", "Invitation: Team Sync"), false, "calendar invite"},
		{"empty subject", message("", "From", "person@example.com", "To", "user@example.com", "Subject", ""), false, "auto-generated subject"},
		{"out of office", message("", "From", "person@example.com", "To", "user@example.com", "Subject", "Out of office: vacation"), false, "auto-generated subject"},
		{"conversation", message("", "From", "colleague@example.com", "To", "user@example.com", "Subject", "Quick question about the project"), true, ""},
		{"small group", message("", "From", "person@example.com", "To", "a@x.com, b@x.com", "Cc", "c@x.com", "Subject", "Discussion topic"), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := IsHighSignalEmail(tt.msg, "user@example.com")
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestParseHeaders(t *testing.T) {
	assert.Empty(t, parseHeaders(nil))
	got := parseHeaders(message("", "From", "a@example.com", "Cc", "c@example.com").Payload)
	assert.Equal(t, map[string]string{"From": "a@example.com", "Cc": "c@example.com"}, got)
}

func TestIsAutomatedSender(t *testing.T) {
	automated := []string{
		"", "noreply@example.com", "no-reply@service.com", "do-not-reply@site.com",
		"MAILER-DAEMON@mail.example.com", "bounces@mailing.com", "NOREPLY@EXAMPLE.COM",
		"support@notifications-service.com",
	}
	for _, from := range automated {
		assert.True(t, isAutomatedSender(from), from)
	}
	for _, from := range []string{"john.doe@example.com", "Jane Smith <jane@example.com>"} {
		assert.False(t, isAutomatedSender(from), from)
	}
}

func TestCountRecipients(t *testing.T) {
	tests := map[string]int{
		"":                               0,
		"user@example.com":               1,
		"a@x.com,  b@x.com,   c@x.com":   3,
		"Alice <a@x.com>, Bob <b@x.com>": 2,
		"a@x.com, b@x.com, ":             2,
		"a@x.com,,,b@x.com":              2,
	}
	for header, want := range tests {
		assert.Equal(t, want, countRecipients(header), header)
	}
}

func TestIsCalendarInvite(t *testing.T) {
	plain := &gmail.Message{Payload: &gmail.MessagePart{MimeType: "text/plain"}}
	assert.False(t, isCalendarInvite("Invitation: x", &gmail.Message{}))
	assert.True(t, isCalendarInvite("Meeting", &gmail.Message{Payload: &gmail.MessagePart{MimeType: "text/calendar"}}))
	for _, subject := range []string{"Invite: Coffee chat", "Updated invitation: Review", "Canceled event: Lunch", "INVITATION: IMPORTANT"} {
		assert.True(t, isCalendarInvite(subject, plain), subject)
	}
	for _, subject := range []string{"Please see invitation below", "Let's meet tomorrow"} {
		assert.False(t, isCalendarInvite(subject, plain), subject)
	}
}

func TestIsAutoGeneratedSubject(t *testing.T) {
	for _, subject := range []string{"", "   ", "Re", "Automatic reply: I'm out", "Delivery Status Notification (Failure)", "Undelivered Mail Returned to Sender", "OUT OF OFFICE: HOLIDAY"} {
		assert.True(t, isAutoGeneratedSubject(subject), subject)
	}
	for _, subject := range []string{"Hey", "Let's go out for lunch", "The automatic system is broken"} {
		assert.False(t, isAutoGeneratedSubject(subject), subject)
	}
}

func TestExtractEmailAddress(t *testing.T) {
	tests := []struct {
		field, name, email, domain string
	}{
		{"", "", "", ""},
		{"user@example.com", "", "user@example.com", "example.com"},
		{"John Doe <john@example.com>", "John Doe", "john@example.com", "example.com"},
		{`"Jane Smith" <jane@example.com>`, "Jane Smith", "jane@example.com", "example.com"},
		{"Alice <  alice@example.com  >", "Alice", "alice@example.com", "example.com"},
		{"user@EXAMPLE.COM", "", "user@EXAMPLE.COM", "example.com"},
		{"Dr. Sarah O'Brien, PhD <sarah@university.edu>", "Dr. Sarah O'Brien, PhD", "sarah@university.edu", "university.edu"},
		{"invaliduser", "", "invaliduser", ""},
		{"user@@example.com", "", "user@@example.com", ""},
		{"Just Name <>", "Just Name", "", ""},
		{"Name <email@example.com", "", "Name <email@example.com", "example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			name, email, domain := ExtractEmailAddress(tt.field)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.email, email)
			assert.Equal(t, tt.domain, domain)
		})
	}
}

func TestSplitAddresses(t *testing.T) {
	list := splitAddresses(`"O'Brien, Sarah" <sarah@university.edu>, bob@example.com`)
	if assert.Len(t, list, 2) {
		assert.Equal(t, "O'Brien, Sarah", list[0].Name)
		assert.Equal(t, "bob@example.com", list[1].Address)
	}

	// Unparseable lists fall back to a comma split that drops junk entries.
	list = splitAddresses("Alice <alice@example.com>, not an address, bob@example.com>")
	assert.Len(t, list, 2)
	assert.Nil(t, splitAddresses("  "))
}
