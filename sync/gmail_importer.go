// ABOUTME: Gmail importer that observes the people behind high-signal email threads
// ABOUTME: Incremental sync through historyId with a time-window query fallback
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/models"
)

const (
	gmailService          = "gmail"
	maxGmailResults       = 500
	defaultImportDays     = 30
	incrementalImportDays = 7
	skipReasonAutomated   = "automated sender"
	skipReasonGroup       = "group email"
	skipReasonCalendar    = "calendar invite"
	skipReasonAutoSubject = "auto-generated subject"
)

// GmailImporter links the counterparties of personal email exchanges.
type GmailImporter struct {
	importer
	now func() time.Time
}

func NewGmailImporter(linker Linker, state StateStore, logger *slog.Logger, out io.Writer) *GmailImporter {
	return &GmailImporter{importer: newImporter(gmailService, linker, state, logger, out), now: time.Now}
}

// ProcessMessage observes the other side of one message: the sender of
// received mail, or every direct recipient of mail the user sent.
func (gi *GmailImporter) ProcessMessage(ctx context.Context, report *Report, msg *gmail.Message, userEmail string) error {
	if ok, reason := IsHighSignalEmail(msg, userEmail); !ok {
		bucket, _, _ := strings.Cut(reason, " (")
		report.skip(bucket)
		return nil
	}

	headers := parseHeaders(msg.Payload)
	observedAt, err := parseEmailDate(headers["Date"])
	if err != nil {
		gi.logger.Debug("unparseable email date", "message_id", msg.Id, "date", headers["Date"])
		observedAt = gi.now()
	}

	senderName, senderEmail, _ := ExtractEmailAddress(headers["From"])
	var counterparts []*mail.Address
	if strings.EqualFold(senderEmail, userEmail) {
		counterparts = append(splitAddresses(headers["To"]), splitAddresses(headers["Cc"])...)
	} else {
		counterparts = []*mail.Address{{Name: senderName, Address: senderEmail}}
	}

	metadata, err := json.Marshal(map[string]string{"subject": headers["Subject"], "thread_id": msg.ThreadId})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for _, addr := range counterparts {
		email, domain := addr.Address, emailDomain(addr.Address)
		if domain == "" || strings.EqualFold(email, userEmail) {
			report.skip("messages to self or without an address")
			continue
		}
		sourceID := msg.Id + ":" + strings.ToLower(email)
		obs := linking.Observation{
			SourceType:  models.SourceGmail,
			SourceID:    sourceID,
			Name:        addr.Name,
			Email:       email,
			ContextPath: "email/" + domain,
			ObservedAt:  observedAt.UTC(),
		}
		if _, err := gi.linkOnce(ctx, report, sourceID, obs, string(metadata)); err != nil {
			return err
		}
	}
	return nil
}

// Import fetches high-signal mail. A full import looks back thirty days;
// otherwise the stored historyId drives an incremental sync, falling back to
// the last week when the history has expired.
func (gi *GmailImporter) Import(ctx context.Context, client *gmail.Service, initial bool) (*Report, error) {
	_, _ = fmt.Fprintln(gi.out, "Syncing Gmail...")
	if err := gi.begin(ctx); err != nil {
		return nil, err
	}

	profile, err := client.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, gi.fail(ctx, fmt.Errorf("failed to get user profile: %w", err))
	}
	userEmail := profile.EmailAddress

	var startHistoryID uint64
	if !initial {
		state, err := gi.state.GetSyncState(ctx, gi.service)
		if err != nil {
			return nil, gi.fail(ctx, fmt.Errorf("failed to get sync state: %w", err))
		}
		if state != nil {
			startHistoryID, _ = parseHistoryID(state.LastSyncToken)
		}
	}

	report := newReport()
	useHistory := startHistoryID > 0
	if useHistory {
		_, _ = fmt.Fprintf(gi.out, "  → Incremental sync using historyId (from %d to %d)...\n", startHistoryID, profile.HistoryId)
		err := gi.syncHistory(ctx, client, report, userEmail, startHistoryID)
		switch {
		case isHistoryExpiredError(err):
			_, _ = fmt.Fprintln(gi.out, "  ⚠ HistoryId expired, falling back to time-based sync...")
			useHistory = false
		case err != nil:
			return nil, gi.fail(ctx, fmt.Errorf("history sync failed: %w", err))
		}
	}

	if !useHistory {
		days := incrementalImportDays
		if initial {
			days = defaultImportDays
		}
		_, _ = fmt.Fprintf(gi.out, "  → Fetching the last %d days of high-signal mail...\n", days)
		query := BuildHighSignalQuery(userEmail, gi.now().AddDate(0, 0, -days))
		if err := gi.syncQuery(ctx, client, report, userEmail, query); err != nil {
			return nil, gi.fail(ctx, err)
		}
	}

	if err := gi.state.UpdateSyncToken(ctx, gi.service, strconv.FormatUint(profile.HistoryId, 10)); err != nil {
		return nil, fmt.Errorf("failed to update sync token: %w", err)
	}
	report.Print(gi.out)
	return report, nil
}

func (gi *GmailImporter) syncHistory(ctx context.Context, client *gmail.Service, report *Report, userEmail string, startHistoryID uint64) error {
	pageToken := ""
	for {
		call := client.Users.History.List("me").
			StartHistoryId(startHistoryID).
			MaxResults(maxGmailResults).
			HistoryTypes("messageAdded", "labelAdded").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		response, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to fetch history: %w", err)
		}
		if response == nil || len(response.History) == 0 {
			return nil
		}

		ids := make(map[string]bool)
		for _, record := range response.History {
			for _, added := range record.MessagesAdded {
				if added.Message != nil {
					ids[added.Message.Id] = true
				}
			}
			for _, labeled := range record.LabelsAdded {
				if labeled.Message != nil {
					ids[labeled.Message.Id] = true
				}
			}
		}
		for id := range ids {
			gi.fetchAndProcess(ctx, client, report, id, userEmail)
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			return nil
		}
	}
}

func (gi *GmailImporter) syncQuery(ctx context.Context, client *gmail.Service, report *Report, userEmail, query string) error {
	pageToken := ""
	for {
		call := client.Users.Messages.List("me").Q(query).MaxResults(maxGmailResults).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		response, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to fetch messages: %w", err)
		}
		if response == nil || response.Messages == nil {
			return nil
		}
		for _, ref := range response.Messages {
			gi.fetchAndProcess(ctx, client, report, ref.Id, userEmail)
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			return nil
		}
		if report.Linked > 0 {
			_, _ = fmt.Fprintf(gi.out, "  → Linked %d observations so far...\n", report.Linked)
		}
	}
}

// fetchAndProcess reports per-message failures and keeps going.
func (gi *GmailImporter) fetchAndProcess(ctx context.Context, client *gmail.Service, report *Report, id, userEmail string) {
	msg, err := client.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "To", "Cc", "Subject", "Date").
		Context(ctx).
		Do()
	if err == nil {
		report.Fetched++
		err = gi.ProcessMessage(ctx, report, msg, userEmail)
	}
	if err != nil {
		_, _ = fmt.Fprintf(gi.out, "  ✗ Failed to process message %s: %v\n", id, err)
		gi.logger.Warn("gmail message failed", "message_id", id, "error", err)
	}
}

func parseHistoryID(token string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(token), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// isHistoryExpiredError matches the 404 Gmail returns for a stale historyId.
func isHistoryExpiredError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(msg, "historyId")
}

// parseEmailDate accepts the RFC 2822 variants seen in Date headers, with or
// without a trailing zone comment.
func parseEmailDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if idx := strings.Index(value, " ("); idx > 0 {
		value = value[:idx]
	}
	formats := []string{
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC822Z,
		time.RFC822,
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %s", value)
}
