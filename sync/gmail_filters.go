// ABOUTME: High-signal filtering and header parsing for Gmail messages
// ABOUTME: Drops automated senders, group threads, invites and auto-replies before linking
package sync

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

// maxDirectRecipients is the largest To+Cc count still treated as a personal exchange.
const maxDirectRecipients = 4

var automatedSenderMarkers = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply",
	"notifications", "notify", "mailer-daemon", "postmaster",
	"bounces", "unsubscribe", "newsletter", "marketing",
}

var calendarSubjectPrefixes = []string{
	"invitation:", "invite:", "calendar:",
	"updated invitation:", "canceled event:", "cancelled event:",
}

var autoSubjectPrefixes = []string{
	"automatic reply", "out of office", "delivery status notification",
	"returned mail", "failure notice", "undelivered mail",
}

// BuildHighSignalQuery returns a Gmail search for replied threads and starred
// mail after since.
func BuildHighSignalQuery(userEmail string, since time.Time) string {
	return fmt.Sprintf("(from:me is:replied) OR (to:me is:replied) OR is:starred after:%s -in:spam -in:trash",
		since.Format("2006/01/02"))
}

// IsHighSignalEmail reports whether a message is a personal exchange worth
// observing. The reason names the first filter that rejected it.
func IsHighSignalEmail(msg *gmail.Message, userEmail string) (bool, string) {
	if msg == nil {
		return false, "nil message"
	}
	headers := parseHeaders(msg.Payload)

	if isAutomatedSender(headers["From"]) {
		return false, skipReasonAutomated
	}
	if n := countRecipients(headers["To"]) + countRecipients(headers["Cc"]); n > maxDirectRecipients {
		return false, fmt.Sprintf("%s (%d recipients)", skipReasonGroup, n)
	}
	subject := headers["Subject"]
	if isCalendarInvite(subject, msg) {
		return false, skipReasonCalendar
	}
	if isAutoGeneratedSubject(subject) {
		return false, skipReasonAutoSubject
	}
	return true, ""
}

func parseHeaders(payload *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if payload == nil {
		return headers
	}
	for _, h := range payload.Headers {
		headers[h.Name] = h.Value
	}
	return headers
}

func isAutomatedSender(from string) bool {
	if from == "" {
		return true
	}
	lower := strings.ToLower(from)
	for _, marker := range automatedSenderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func countRecipients(header string) int {
	count := 0
	for _, part := range strings.Split(header, ",") {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

func isCalendarInvite(subject string, msg *gmail.Message) bool {
	if msg == nil || msg.Payload == nil {
		return false
	}
	if msg.Payload.MimeType == "text/calendar" {
		return true
	}
	return hasAnyPrefix(strings.ToLower(subject), calendarSubjectPrefixes)
}

func isAutoGeneratedSubject(subject string) bool {
	trimmed := strings.TrimSpace(subject)
	if len(trimmed) < 3 {
		return true
	}
	return hasAnyPrefix(strings.ToLower(trimmed), autoSubjectPrefixes)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ExtractEmailAddress splits a header address into display name, address and
// lowercased domain. Malformed input is returned as the address with whatever
// domain can be recovered.
func ExtractEmailAddress(field string) (name, email, domain string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", "", ""
	}

	open := strings.LastIndex(field, "<")
	closing := strings.LastIndex(field, ">")
	if open >= 0 && closing > open {
		name = strings.Trim(strings.TrimSpace(field[:open]), `"`)
		email = strings.TrimSpace(field[open+1 : closing])
	} else {
		email = field
	}
	return name, email, emailDomain(email)
}

func emailDomain(email string) string {
	if strings.Count(email, "@") != 1 {
		return ""
	}
	return strings.ToLower(email[strings.Index(email, "@")+1:])
}

// splitAddresses parses an address list header. Quoted display names may
// contain commas, so the RFC 5322 parser is tried before a plain split.
func splitAddresses(header string) []*mail.Address {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(header); err == nil {
		return list
	}
	var list []*mail.Address
	for _, part := range strings.Split(header, ",") {
		name, email, domain := ExtractEmailAddress(part)
		if domain == "" {
			continue
		}
		list = append(list, &mail.Address{Name: name, Address: email})
	}
	return list
}
