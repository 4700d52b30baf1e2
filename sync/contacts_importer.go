// ABOUTME: Google Contacts importer that turns People API connections into observations
// ABOUTME: Pages through connections and links each new contact once through the linker
package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/api/people/v1"

	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/models"
)

const (
	contactsService  = "contacts"
	contactsPageSize = 1000
	contactsFields   = "names,emailAddresses,phoneNumbers,organizations"
)

type GoogleContact struct {
	ResourceName string
	Name         string
	Email        string
	Phone        string
	Company      string
	JobTitle     string
}

// ContextPath files a contact under its organization when it has one.
func (gc *GoogleContact) ContextPath() string {
	if gc.Company == "" {
		return "contacts"
	}
	return "contacts/" + gc.Company
}

// ContactsImporter links Google Contacts into the person directory.
type ContactsImporter struct {
	importer
}

func NewContactsImporter(linker Linker, state StateStore, logger *slog.Logger, out io.Writer) *ContactsImporter {
	return &ContactsImporter{importer: newImporter(contactsService, linker, state, logger, out)}
}

// ImportContact links one contact. Contacts without a name and without an
// email carry nothing to resolve and are skipped.
func (ci *ContactsImporter) ImportContact(ctx context.Context, report *Report, gc *GoogleContact) error {
	if gc.Name == "" && gc.Email == "" && gc.Phone == "" {
		report.skip("contacts without name, email or phone")
		return nil
	}
	obs := linking.Observation{
		SourceType:  models.SourceGoogleContacts,
		SourceID:    gc.ResourceName,
		Name:        gc.Name,
		Email:       gc.Email,
		Phone:       gc.Phone,
		ContextPath: gc.ContextPath(),
	}
	_, err := ci.linkOnce(ctx, report, gc.ResourceName, obs, gc.JobTitle)
	return err
}

// Import fetches every connection of the authenticated user.
func (ci *ContactsImporter) Import(ctx context.Context, client *people.Service) (*Report, error) {
	_, _ = fmt.Fprintln(ci.out, "Syncing Google Contacts...")
	if err := ci.begin(ctx); err != nil {
		return nil, err
	}

	report := newReport()
	pageToken := ""
	for {
		call := client.People.Connections.List("people/me").
			PageSize(contactsPageSize).
			PersonFields(contactsFields).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, ci.fail(ctx, fmt.Errorf("failed to fetch contacts: %w", err))
		}
		if response == nil || response.Connections == nil {
			break
		}

		report.Fetched += len(response.Connections)
		for _, person := range response.Connections {
			gc := convertPerson(person)
			if err := ci.ImportContact(ctx, report, gc); err != nil {
				_, _ = fmt.Fprintf(ci.out, "  ✗ Failed to import contact %q: %v\n", gc.Name, err)
				ci.logger.Warn("contact import failed", "resource_name", gc.ResourceName, "error", err)
			}
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
		if report.Linked > 0 {
			_, _ = fmt.Fprintf(ci.out, "  → Linked %d contacts so far...\n", report.Linked)
		}
	}

	if err := ci.state.UpdateSyncToken(ctx, ci.service, ""); err != nil {
		return nil, fmt.Errorf("failed to record sync: %w", err)
	}
	report.Print(ci.out)
	return report, nil
}

// convertPerson picks the primary email and phone, falling back to the first
// non-empty value.
func convertPerson(person *people.Person) *GoogleContact {
	gc := &GoogleContact{ResourceName: person.ResourceName}

	if len(person.Names) > 0 {
		gc.Name = person.Names[0].DisplayName
	}

	for _, email := range person.EmailAddresses {
		if email.Value == "" {
			continue
		}
		if gc.Email == "" {
			gc.Email = email.Value
		}
		if email.Metadata != nil && email.Metadata.Primary {
			gc.Email = email.Value
			break
		}
	}

	for _, phone := range person.PhoneNumbers {
		value := phone.CanonicalForm
		if value == "" {
			value = phone.Value
		}
		if value == "" {
			continue
		}
		if gc.Phone == "" {
			gc.Phone = value
		}
		if phone.Metadata != nil && phone.Metadata.Primary {
			gc.Phone = value
			break
		}
	}

	if len(person.Organizations) > 0 {
		gc.Company = person.Organizations[0].Name
		gc.JobTitle = person.Organizations[0].Title
	}
	return gc
}
