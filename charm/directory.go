// ABOUTME: Person directory stored in Charm KV so it syncs across devices
// ABOUTME: Keeps person JSON plus email, phone and name index keys in one keyspace

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

const (
	personPrefix = "person/"
	emailPrefix  = "email/"
	phonePrefix  = "phone/"
	namePrefix   = "name/"
)

var (
	ErrPersonNotFound = errors.New("person not found")
	ErrInvalidPerson  = errors.New("invalid person")
)

// PersonDirectory implements the person directory over a Charm KV client.
// Writes go through the client lock and sync when auto-sync is on.
type PersonDirectory struct {
	client *Client
}

func NewPersonDirectory(client *Client) *PersonDirectory {
	return &PersonDirectory{client: client}
}

func (d *PersonDirectory) Add(_ context.Context, person *models.CanonicalPerson) (*models.CanonicalPerson, error) {
	if person == nil || strings.TrimSpace(person.CanonicalName) == "" {
		return nil, ErrInvalidPerson
	}
	if person.ID == "" {
		person.ID = uuid.New().String()
	}
	if person.Category == "" {
		person.Category = models.CategoryUnknown
	}
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now

	if err := d.put(person); err != nil {
		return nil, err
	}
	if err := d.writeIndexes(person); err != nil {
		return nil, err
	}
	return person, nil
}

// Update replaces a stored person and moves its index keys.
func (d *PersonDirectory) Update(ctx context.Context, person *models.CanonicalPerson) error {
	if person == nil || person.ID == "" || strings.TrimSpace(person.CanonicalName) == "" {
		return ErrInvalidPerson
	}
	previous, err := d.GetByID(ctx, person.ID)
	if err != nil {
		return err
	}
	if previous == nil {
		return ErrPersonNotFound
	}
	if err := d.removeIndexes(previous); err != nil {
		return err
	}

	person.UpdatedAt = time.Now().UTC()
	if err := d.put(person); err != nil {
		return err
	}
	return d.writeIndexes(person)
}

// Save pushes local writes to the Charm server.
func (d *PersonDirectory) Save(_ context.Context) error {
	if err := d.client.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}
	return nil
}

func (d *PersonDirectory) GetByID(_ context.Context, id string) (*models.CanonicalPerson, error) {
	if id == "" {
		return nil, nil
	}
	data, err := d.client.Get([]byte(personPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	var person models.CanonicalPerson
	if err := json.Unmarshal(data, &person); err != nil {
		return nil, fmt.Errorf("failed to decode person %s: %w", id, err)
	}
	return &person, nil
}

func (d *PersonDirectory) GetByEmail(ctx context.Context, email string) (*models.CanonicalPerson, error) {
	normalized := names.NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	return d.lookup(ctx, emailPrefix+normalized)
}

func (d *PersonDirectory) GetByPhone(ctx context.Context, phone string) (*models.CanonicalPerson, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}
	return d.lookup(ctx, phonePrefix+phone)
}

// FindByName returns every person whose canonical name or alias has the same name key.
func (d *PersonDirectory) FindByName(ctx context.Context, name string) ([]*models.CanonicalPerson, error) {
	key := names.Key(name)
	if key == "" {
		return nil, nil
	}
	keys, err := d.client.KeysWithPrefix([]byte(namePrefix + key + "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan name index: %w", err)
	}

	var people []*models.CanonicalPerson
	for _, k := range keys {
		id := strings.TrimPrefix(string(k), namePrefix+key+"/")
		person, err := d.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if person != nil {
			people = append(people, person)
		}
	}
	sortPeople(people)
	return people, nil
}

func (d *PersonDirectory) GetAll(ctx context.Context) ([]*models.CanonicalPerson, error) {
	keys, err := d.client.KeysWithPrefix([]byte(personPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	people := make([]*models.CanonicalPerson, 0, len(keys))
	for _, k := range keys {
		person, err := d.GetByID(ctx, strings.TrimPrefix(string(k), personPrefix))
		if err != nil {
			return nil, err
		}
		if person != nil {
			people = append(people, person)
		}
	}
	sortPeople(people)
	return people, nil
}

func (d *PersonDirectory) Count(_ context.Context) (int, error) {
	keys, err := d.client.KeysWithPrefix([]byte(personPrefix))
	if err != nil {
		return 0, fmt.Errorf("failed to count people: %w", err)
	}
	return len(keys), nil
}

func (d *PersonDirectory) lookup(ctx context.Context, key string) (*models.CanonicalPerson, error) {
	id, err := d.client.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", key, err)
	}
	return d.GetByID(ctx, string(id))
}

func (d *PersonDirectory) put(person *models.CanonicalPerson) error {
	data, err := json.Marshal(person)
	if err != nil {
		return fmt.Errorf("failed to encode person: %w", err)
	}
	if err := d.client.Set([]byte(personPrefix+person.ID), data); err != nil {
		return fmt.Errorf("failed to store person: %w", err)
	}
	return nil
}

// writeIndexes leaves an email or phone with its first owner, matching the SQLite directory.
func (d *PersonDirectory) writeIndexes(person *models.CanonicalPerson) error {
	for _, key := range anchorKeys(person) {
		_, err := d.client.Get([]byte(key))
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to read index %s: %w", key, err)
		}
		if err := d.client.Set([]byte(key), []byte(person.ID)); err != nil {
			return fmt.Errorf("failed to write index %s: %w", key, err)
		}
	}
	for _, key := range nameKeys(person) {
		if err := d.client.Set([]byte(key), []byte(person.ID)); err != nil {
			return fmt.Errorf("failed to write index %s: %w", key, err)
		}
	}
	return nil
}

func (d *PersonDirectory) removeIndexes(person *models.CanonicalPerson) error {
	for _, key := range anchorKeys(person) {
		owner, err := d.client.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read index %s: %w", key, err)
		}
		if string(owner) != person.ID {
			continue
		}
		if err := d.client.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to remove index %s: %w", key, err)
		}
	}
	for _, key := range nameKeys(person) {
		if err := d.client.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to remove index %s: %w", key, err)
		}
	}
	return nil
}

func anchorKeys(person *models.CanonicalPerson) []string {
	keys := make([]string, 0, len(person.Emails)+len(person.Phones))
	for _, email := range person.Emails {
		keys = append(keys, emailPrefix+email)
	}
	for _, phone := range person.Phones {
		keys = append(keys, phonePrefix+phone)
	}
	return keys
}

func nameKeys(person *models.CanonicalPerson) []string {
	var keys []string
	for _, variant := range person.NameVariants() {
		if key := names.Key(variant); key != "" {
			keys = append(keys, namePrefix+key+"/"+person.ID)
		}
	}
	return keys
}

func sortPeople(people []*models.CanonicalPerson) {
	sort.SliceStable(people, func(i, j int) bool {
		if !people[i].CreatedAt.Equal(people[j].CreatedAt) {
			return people[i].CreatedAt.Before(people[j].CreatedAt)
		}
		return people[i].ID < people[j].ID
	})
}
