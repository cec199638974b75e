package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/summarist/internal/models"
)

// MemoryStore is an in-memory Profile Store used by unit tests and local
// runs without Firestore. It hands out repositories that share one lock.
type MemoryStore struct {
	mu                 sync.RWMutex
	now                func() time.Time
	profiles           map[string]*models.Profile
	users              map[string]*models.User
	userSubs           map[string]map[string]*models.SubscriptionRecord
	customers          map[string]*models.StripeCustomer
	customerSubs       map[string]map[string]*models.SubscriptionRecord
	audit              []models.AuditLog
	shelves            map[string]map[string]*models.LibraryEntry
	profileWrites      int
	subscriptionWrites int
}

// NewMemoryStore creates an empty store. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:          now,
		profiles:     make(map[string]*models.Profile),
		users:        make(map[string]*models.User),
		userSubs:     make(map[string]map[string]*models.SubscriptionRecord),
		customers:    make(map[string]*models.StripeCustomer),
		customerSubs: make(map[string]map[string]*models.SubscriptionRecord),
		shelves:      make(map[string]map[string]*models.LibraryEntry),
	}
}

// Repositories returns the full repository set over this store.
func (m *MemoryStore) Repositories() *Repositories {
	return &Repositories{
		Profiles:        memoryProfiles{m},
		Users:           memoryUsers{m},
		Subscriptions:   memorySubscriptions{m},
		StripeCustomers: memoryCustomers{m},
		Audit:           memoryAudit{m},
		Library:         memoryLibrary{m},
	}
}

// Writes reports how many profile and subscription record writes happened.
func (m *MemoryStore) Writes() (profiles, subscriptions int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profileWrites, m.subscriptionWrites
}

// CustomerCount reports how many fallback customer records exist.
func (m *MemoryStore) CustomerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.customers)
}

type memoryProfiles struct{ m *MemoryStore }

func (r memoryProfiles) GetByID(_ context.Context, uid string) (*models.Profile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.profiles[uid]
	if !ok {
		return nil, fmt.Errorf("profile '%s': %w", uid, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r memoryProfiles) Create(_ context.Context, profile *models.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[profile.UID]; ok {
		return fmt.Errorf("profile '%s': %w", profile.UID, ErrAlreadyExists)
	}
	cp := *profile
	r.m.profiles[profile.UID] = &cp
	r.m.profileWrites++
	return nil
}

func (r memoryProfiles) MergeIdentity(_ context.Context, uid, email, displayName, photoURL string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p := r.m.profileLocked(uid)
	if email != "" {
		p.Email = email
	}
	if displayName != "" {
		p.DisplayName = displayName
	}
	if photoURL != "" {
		p.PhotoURL = photoURL
	}
	p.UpdatedAt = r.m.now()
	r.m.profileWrites++
	return nil
}

func (r memoryProfiles) UpdateSubscription(_ context.Context, uid string, update SubscriptionUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p := r.m.profileLocked(uid)
	p.Plan = update.Plan
	p.Subscribed = update.Subscribed
	p.SubscriptionDate = nil
	if update.SubscriptionDate != nil {
		d := *update.SubscriptionDate
		p.SubscriptionDate = &d
	}
	p.UpdatedAt = r.m.now()
	r.m.profileWrites++
	return nil
}

// profileLocked returns the profile for uid, creating a bare one as a merge
// write would.
func (m *MemoryStore) profileLocked(uid string) *models.Profile {
	p, ok := m.profiles[uid]
	if !ok {
		p = &models.Profile{UID: uid}
		m.profiles[uid] = p
	}
	return p
}

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Upsert(_ context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[user.UID]
	if !ok {
		u = &models.User{ID: user.UID, UID: user.UID}
		r.m.users[user.UID] = u
	}
	if user.Email != "" {
		u.Email = user.Email
	}
	if user.DisplayName != "" {
		u.DisplayName = user.DisplayName
	}
	if user.PhotoURL != "" {
		u.PhotoURL = user.PhotoURL
	}
	u.LastSeen = r.m.now()
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, uid string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[uid]
	if !ok {
		return nil, fmt.Errorf("user '%s': %w", uid, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r memoryUsers) FindByStripeCustomerID(_ context.Context, customerID string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if customerID != "" {
		ids := make([]string, 0, len(r.m.users))
		for id := range r.m.users {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if u := r.m.users[id]; u.StripeCustomerID == customerID {
				cp := *u
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("user with stripe customer '%s': %w", customerID, ErrNotFound)
}

func (r memoryUsers) LinkStripe(_ context.Context, uid, customerID, subscriptionID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[uid]
	if !ok {
		u = &models.User{ID: uid, UID: uid}
		r.m.users[uid] = u
	}
	if customerID != "" {
		u.StripeCustomerID = customerID
	}
	if subscriptionID != "" {
		u.SubscriptionID = subscriptionID
	}
	return nil
}

func (r memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if email != "" {
		ids := make([]string, 0, len(r.m.users))
		for id := range r.m.users {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if u := r.m.users[id]; u.Email == email {
				cp := *u
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("user with email '%s': %w", email, ErrNotFound)
}

type memorySubscriptions struct{ m *MemoryStore }

func (r memorySubscriptions) UpsertForUser(_ context.Context, uid, docID string, patch models.SubscriptionPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.upsertLocked(r.m.userSubs, uid, docID, patch)
	return nil
}

func (r memorySubscriptions) UpsertForCustomer(_ context.Context, customerID, docID string, patch models.SubscriptionPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.upsertLocked(r.m.customerSubs, customerID, docID, patch)
	return nil
}

func (m *MemoryStore) upsertLocked(parents map[string]map[string]*models.SubscriptionRecord, parent, docID string, patch models.SubscriptionPatch) {
	recs, ok := parents[parent]
	if !ok {
		recs = make(map[string]*models.SubscriptionRecord)
		parents[parent] = recs
	}
	rec, ok := recs[docID]
	if !ok {
		rec = &models.SubscriptionRecord{DocID: docID}
		recs[docID] = rec
	}
	patch.Apply(rec, m.now())
	m.subscriptionWrites++
}

func (r memorySubscriptions) GetForUser(_ context.Context, uid, docID string) (*models.SubscriptionRecord, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return getRecord(r.m.userSubs, uid, docID)
}

// CustomerSubscription returns the record nested under a Stripe customer
// fallback document.
func (m *MemoryStore) CustomerSubscription(customerID, docID string) (*models.SubscriptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return getRecord(m.customerSubs, customerID, docID)
}

func getRecord(parents map[string]map[string]*models.SubscriptionRecord, parent, docID string) (*models.SubscriptionRecord, error) {
	rec, ok := parents[parent][docID]
	if !ok {
		return nil, fmt.Errorf("subscription record '%s': %w", docID, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

type memoryCustomers struct{ m *MemoryStore }

func (r memoryCustomers) Upsert(_ context.Context, customer *models.StripeCustomer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.customers[customer.ID]
	if !ok {
		c = &models.StripeCustomer{ID: customer.ID}
		r.m.customers[customer.ID] = c
	}
	if customer.Email != "" {
		c.Email = customer.Email
	}
	if customer.StripeCustomerID != "" {
		c.StripeCustomerID = customer.StripeCustomerID
	}
	c.UpdatedAt = r.m.now()
	return nil
}

func (r memoryCustomers) FindByCustomerID(_ context.Context, customerID string) (*models.StripeCustomer, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if customerID != "" {
		for _, c := range r.m.customers {
			if c.StripeCustomerID == customerID {
				cp := *c
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("stripe customer '%s': %w", customerID, ErrNotFound)
}

type memoryAudit struct{ m *MemoryStore }

func (r memoryAudit) Create(_ context.Context, logEntry models.AuditLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	logEntry.ID = fmt.Sprintf("audit_%d", len(r.m.audit)+1)
	r.m.audit = append(r.m.audit, logEntry)
	return nil
}

func (r memoryAudit) ListByUser(_ context.Context, uid string, limit int) ([]*models.AuditLog, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*models.AuditLog
	for i := len(r.m.audit) - 1; i >= 0; i-- {
		if r.m.audit[i].UserID != uid {
			continue
		}
		entry := r.m.audit[i]
		out = append(out, &entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type memoryLibrary struct{ m *MemoryStore }

func shelfKey(uid string, shelf Shelf) string {
	return uid + "/" + string(shelf)
}

func (r memoryLibrary) Save(_ context.Context, uid string, shelf Shelf, entry *models.LibraryEntry) error {
	if uid == "" || entry == nil || entry.ID == "" {
		return fmt.Errorf("uid and book id are required for Save operation")
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := shelfKey(uid, shelf)
	books, ok := r.m.shelves[key]
	if !ok {
		books = make(map[string]*models.LibraryEntry)
		r.m.shelves[key] = books
	}
	cp := *entry
	books[entry.ID] = &cp
	return nil
}

func (r memoryLibrary) Remove(_ context.Context, uid string, shelf Shelf, bookID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.shelves[shelfKey(uid, shelf)], bookID)
	return nil
}

func (r memoryLibrary) List(_ context.Context, uid string, shelf Shelf) ([]*models.LibraryEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	entries := []*models.LibraryEntry{}
	for _, e := range r.m.shelves[shelfKey(uid, shelf)] {
		cp := *e
		entries = append(entries, &cp)
	}
	stamp := func(e *models.LibraryEntry) time.Time {
		if shelf == ShelfFinished && e.FinishedAt != nil {
			return *e.FinishedAt
		}
		if e.AddedAt != nil {
			return *e.AddedAt
		}
		return time.Time{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := stamp(entries[i]), stamp(entries[j])
		if ti.Equal(tj) {
			return entries[i].ID < entries[j].ID
		}
		return ti.After(tj)
	})
	return entries, nil
}
