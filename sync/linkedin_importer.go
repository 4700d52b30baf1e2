// ABOUTME: LinkedIn connections export importer
// ABOUTME: Parses Connections.csv and resolves each row through the LinkedIn resolution flow
package sync

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/resolver"
)

const linkedinService = "linkedin"

var ErrNoConnectionsHeader = errors.New("no LinkedIn connections header row found")

// LinkedInConnection is one row of the connections export.
type LinkedInConnection struct {
	Profile     resolver.LinkedInProfile
	ConnectedOn time.Time
}

// SourceID identifies the connection across exports: the profile URL, then
// the email, then the name.
func (c LinkedInConnection) SourceID() string {
	switch {
	case c.Profile.URL != "":
		return c.Profile.URL
	case c.Profile.Email != "":
		return strings.ToLower(c.Profile.Email)
	default:
		return c.Profile.FullName()
	}
}

// ParseLinkedInCSV reads a Connections.csv export. The notes LinkedIn puts
// above the header row are skipped.
func ParseLinkedInCSV(r io.Reader) ([]LinkedInConnection, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var columns map[string]int
	var connections []LinkedInConnection
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		if columns == nil {
			if len(record) > 0 && strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(record[0]), "\ufeff"), "First Name") {
				columns = make(map[string]int, len(record))
				for i, name := range record {
					columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
				}
			}
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		conn := LinkedInConnection{Profile: resolver.LinkedInProfile{
			FirstName: field("first name"),
			LastName:  field("last name"),
			URL:       field("url"),
			Email:     field("email address"),
			Company:   field("company"),
			Position:  field("position"),
		}}
		if on := field("connected on"); on != "" {
			if t, err := time.Parse("02 Jan 2006", on); err == nil {
				conn.ConnectedOn = t
			}
		}
		connections = append(connections, conn)
	}

	if columns == nil {
		return nil, ErrNoConnectionsHeader
	}
	return connections, nil
}

// LinkedInResolver is the resolution flow for LinkedIn profiles.
type LinkedInResolver interface {
	ResolveFromLinkedIn(ctx context.Context, profile resolver.LinkedInProfile) (*models.ResolutionResult, error)
}

// SourceRecorder records the observation behind each imported row.
type SourceRecorder interface {
	Upsert(ctx context.Context, entity *models.SourceEntity) (*models.SourceEntity, error)
	UpdateLink(ctx context.Context, id, personID string, confidence float64, status string) error
}

// LinkedInImporter resolves exported connections directly. Each row is a
// person the user chose to connect with, so links are recorded as confirmed.
type LinkedInImporter struct {
	importer
	resolver LinkedInResolver
	sources  SourceRecorder
}

func NewLinkedInImporter(res LinkedInResolver, sources SourceRecorder, state StateStore, logger *slog.Logger, out io.Writer) *LinkedInImporter {
	return &LinkedInImporter{
		importer: newImporter(linkedinService, nil, state, logger, out),
		resolver: res,
		sources:  sources,
	}
}

// ImportConnection resolves one connection unless it was imported before.
func (li *LinkedInImporter) ImportConnection(ctx context.Context, report *Report, conn LinkedInConnection) error {
	key := conn.SourceID()
	if key == "" {
		report.skip("rows without a name, email or URL")
		return nil
	}
	exists, err := li.state.CheckSyncLogExists(ctx, li.service, key)
	if err != nil {
		return fmt.Errorf("failed to check sync log: %w", err)
	}
	if exists {
		report.Duplicates++
		return nil
	}

	result, err := li.resolver.ResolveFromLinkedIn(ctx, conn.Profile)
	if err != nil {
		return err
	}
	if result == nil {
		report.skip("rows without a name or email")
		return nil
	}

	observedAt := conn.ConnectedOn
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}
	entity, err := li.sources.Upsert(ctx, &models.SourceEntity{
		SourceType:    models.SourceLinkedIn,
		SourceID:      key,
		ObservedName:  conn.Profile.FullName(),
		ObservedEmail: conn.Profile.Email,
		ContextPath:   linkedinContextPath(conn.Profile.Company),
		ObservedAt:    observedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to record connection: %w", err)
	}
	if err := li.sources.UpdateLink(ctx, entity.ID, result.Person.ID, result.Confidence, models.LinkStatusConfirmed); err != nil {
		return err
	}

	report.record(&linking.LinkOutcome{SourceEntity: entity, Result: result, AutoAccepted: !result.IsNew})
	if err := li.state.CreateSyncLog(ctx, li.service, key, entity.ID, conn.Profile.Company); err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}

// Import parses the export and resolves every connection in it.
func (li *LinkedInImporter) Import(ctx context.Context, r io.Reader) (*Report, error) {
	_, _ = fmt.Fprintln(li.out, "Importing LinkedIn connections...")
	if err := li.begin(ctx); err != nil {
		return nil, err
	}

	connections, err := ParseLinkedInCSV(r)
	if err != nil {
		return nil, li.fail(ctx, err)
	}

	report := newReport()
	report.Fetched = len(connections)
	for _, conn := range connections {
		if err := li.ImportConnection(ctx, report, conn); err != nil {
			_, _ = fmt.Fprintf(li.out, "  ✗ Failed to import %q: %v\n", conn.Profile.FullName(), err)
			li.logger.Warn("linkedin connection failed", "source_id", conn.SourceID(), "error", err)
		}
	}

	if err := li.state.UpdateSyncToken(ctx, li.service, ""); err != nil {
		return nil, fmt.Errorf("failed to record sync: %w", err)
	}
	report.Print(li.out)
	return report, nil
}

func linkedinContextPath(company string) string {
	if company == "" {
		return "linkedin"
	}
	return "linkedin/" + company
}
