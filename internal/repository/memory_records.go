package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"recordsmaster/internal/domain"
)

// MemoryRecordsRepository is a mutex-guarded in-memory store with the same
// conditional-update semantics as the Postgres implementation. Used when the
// database is disabled (local dev) and throughout the unit tests.
type MemoryRecordsRepository struct {
	mu      sync.Mutex
	records map[string]*domain.RecordItem
	history []*domain.CheckoutHistoryEntry
	nextID  int64
}

func NewMemoryRecordsRepository() *MemoryRecordsRepository {
	return &MemoryRecordsRepository{records: map[string]*domain.RecordItem{}}
}

func copyRecord(r *domain.RecordItem) *domain.RecordItem {
	c := *r
	return &c
}

func (m *MemoryRecordsRepository) GetRecord(ctx context.Context, recordID string) (*domain.RecordItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRecord(r), nil
}

func (m *MemoryRecordsRepository) ListRecords(ctx context.Context, filters RecordFilters, page, size int) ([]*domain.RecordItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*domain.RecordItem{}
	for _, r := range m.records {
		if filters.CIS != 0 && r.CIS != filters.CIS {
			continue
		}
		if filters.RecordType != "" && r.RecordType != filters.RecordType {
			continue
		}
		if filters.CheckedOutTo != "" && (!r.CheckedOutTo.Valid || r.CheckedOutTo.String != filters.CheckedOutTo) {
			continue
		}
		if filters.Requested && !r.Requested {
			continue
		}
		if filters.CheckedOut && !r.CheckedOut {
			continue
		}
		matched = append(matched, copyRecord(r))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Barcode < matched[j].Barcode })

	total := len(matched)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 100
	}
	start := (page - 1) * size
	if start >= total {
		return []*domain.RecordItem{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MemoryRecordsRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.RecordItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Barcode == barcode {
			return copyRecord(r), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryRecordsRepository) FindByBarcodeRange(ctx context.Context, lower, upper string) ([]*domain.RecordItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.RecordItem{}
	for _, r := range m.records {
		if r.Barcode >= lower && r.Barcode <= upper {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, nil
}

func (m *MemoryRecordsRepository) LastAssignedBarcode(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.RecordItem
	for _, r := range m.records {
		if latest == nil ||
			r.CreatedOn.After(latest.CreatedOn) ||
			(r.CreatedOn.Equal(latest.CreatedOn) && r.Barcode > latest.Barcode) {
			latest = r
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.Barcode, nil
}

func (m *MemoryRecordsRepository) SaveBatch(ctx context.Context, records []*domain.RecordItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before touching the map: all or nothing.
	taken := map[string]bool{}
	for _, r := range m.records {
		taken[r.Barcode] = true
	}
	for _, r := range records {
		if taken[r.Barcode] {
			return fmt.Errorf("barcode %s: %w", r.Barcode, domain.ErrBarcodeConflict)
		}
		taken[r.Barcode] = true
	}
	for _, r := range records {
		m.records[r.ID] = copyRecord(r)
	}
	return nil
}

func (m *MemoryRecordsRepository) UpdateLocation(ctx context.Context, recordID, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	r.Location = sql.NullString{String: location, Valid: true}
	return nil
}

func (m *MemoryRecordsRepository) UpdateMetadata(ctx context.Context, record *domain.RecordItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[record.ID]
	if !ok {
		return domain.ErrNotFound
	}
	r.RecordType = record.RecordType
	r.Location = record.Location
	r.BoxNumber = record.BoxNumber
	r.Digitized = record.Digitized
	r.ClosingDate = record.ClosingDate
	r.DestroyDate = record.DestroyDate
	return nil
}

func (m *MemoryRecordsRepository) MarkRequested(ctx context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.CheckedOut {
		return domain.ErrAlreadyCheckedOut
	}
	r.Requested = true
	return nil
}

func (m *MemoryRecordsRepository) MarkReadyForPickup(ctx context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	if !r.Requested && !r.CheckedOut {
		return domain.ErrNotPending
	}
	r.ReadyForPickup = true
	return nil
}

func (m *MemoryRecordsRepository) Checkout(ctx context.Context, recordID, userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.CheckedOut {
		return domain.ErrAlreadyCheckedOut
	}
	r.CheckedOut = true
	r.CheckedOutTo = sql.NullString{String: userID, Valid: true}
	r.Requested = false

	m.nextID++
	m.history = append(m.history, &domain.CheckoutHistoryEntry{
		ID:             m.nextID,
		RecordID:       recordID,
		UserID:         userID,
		CheckedOutDate: now,
	})
	return nil
}

func (m *MemoryRecordsRepository) CheckIn(ctx context.Context, recordID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	if !r.CheckedOut {
		return domain.ErrNotCheckedOut
	}
	r.CheckedOut = false
	r.Requested = false
	r.ReadyForPickup = false
	r.CheckedOutTo = sql.NullString{}

	// Close the most recent open entry for this record.
	var open *domain.CheckoutHistoryEntry
	for _, e := range m.history {
		if e.RecordID == recordID && e.Open() {
			if open == nil || e.CheckedOutDate.After(open.CheckedOutDate) {
				open = e
			}
		}
	}
	if open != nil {
		open.ReturnedDate = sql.NullTime{Time: now, Valid: true}
	}
	return nil
}

func (m *MemoryRecordsRepository) HistoryFor(ctx context.Context, recordID string) ([]*domain.CheckoutHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.CheckoutHistoryEntry{}
	for _, e := range m.history {
		if e.RecordID == recordID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedOutDate.After(out[j].CheckedOutDate) })
	return out, nil
}

// MemoryUsersRepository backs the users API when the database is disabled.
type MemoryUsersRepository struct {
	mu    sync.Mutex
	users map[string]*domain.AppUser
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: map[string]*domain.AppUser{}}
}

func (m *MemoryUsersRepository) ListUsers(ctx context.Context) ([]*domain.AppUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.AppUser{}
	for _, u := range m.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemoryUsersRepository) GetUser(ctx context.Context, userID string) (*domain.AppUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemoryUsersRepository) EnsureUser(ctx context.Context, email string, role domain.Role) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u.ID, nil
		}
	}
	u := &domain.AppUser{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		CreatedOn: time.Now().UTC(),
	}
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *MemoryUsersRepository) SetRole(ctx context.Context, userID string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = domain.NextRole(u.Role, role)
	return nil
}
