package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleansweep/backend/internal/events"
	"github.com/cleansweep/backend/internal/ledger"
	"github.com/cleansweep/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory fakes for the store interfaces. These let the real service logic
// run without a database. Writes through a transaction register an undo on
// the fake tx, so a rolled-back transaction leaves no trace, matching the
// real store.
// ---------------------------------------------------------------------------

type fakeTx struct {
	pgx.Tx
	mu        sync.Mutex
	committed bool
	undo      []func()
}

func (t *fakeTx) onRollback(f func()) {
	t.mu.Lock()
	t.undo = append(t.undo, f)
	t.mu.Unlock()
}

func (t *fakeTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed {
		return pgx.ErrTxClosed
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

type fakeDB struct{}

func (fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

func registerUndo(tx pgx.Tx, f func()) {
	if ft, ok := tx.(*fakeTx); ok && ft != nil {
		ft.onRollback(f)
	}
}

// --- ledger store ---

type memLedger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	entries  []models.LedgerEntry
	failOn   map[uuid.UUID]error
}

func newMemLedger() *memLedger {
	return &memLedger{
		balances: make(map[uuid.UUID]int64),
		failOn:   make(map[uuid.UUID]error),
	}
}

var _ ledger.Store = (*memLedger)(nil)

func (m *memLedger) AppendEntry(_ context.Context, tx pgx.Tx, entry *models.LedgerEntry, allowNegative bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failOn[entry.AccountID]; ok {
		return err
	}

	balance := m.balances[entry.AccountID]
	after := balance + entry.Amount
	if after < 0 && !allowNegative {
		return &ledger.InsufficientFundsError{Available: balance, Requested: -entry.Amount}
	}
	entry.BalanceAfter = after
	entry.CreatedAt = time.Now()
	m.balances[entry.AccountID] = after
	m.entries = append(m.entries, *entry)

	e := *entry
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.balances[e.AccountID] -= e.Amount
		for i := len(m.entries) - 1; i >= 0; i-- {
			if m.entries[i].ID == e.ID {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *memLedger) Balance(_ context.Context, accountID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID], nil
}

func (m *memLedger) History(_ context.Context, accountID uuid.UUID, _ ledger.Filter) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AccountID == accountID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memLedger) HasCampaignGrant(_ context.Context, accountID uuid.UUID, campaignCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.AccountID == accountID && e.Kind == models.EntryPromo &&
			e.CampaignRef != nil && *e.CampaignRef == campaignCode {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) Diverged(context.Context) ([]ledger.Divergence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := make(map[uuid.UUID]int64)
	for _, e := range m.entries {
		sums[e.AccountID] += e.Amount
	}
	var out []ledger.Divergence
	for id, balance := range m.balances {
		if balance != sums[id] {
			out = append(out, ledger.Divergence{AccountID: id, Balance: balance, EntrySum: sums[id]})
		}
	}
	return out, nil
}

func (m *memLedger) byKind(accountID uuid.UUID, kind models.EntryKind) []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *memLedger) balance(accountID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID]
}

// --- booking store ---

type memBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{bookings: make(map[uuid.UUID]*models.Booking)}
}

var _ BookingStore = (*memBookings)(nil)

func (m *memBookings) CreateTx(_ context.Context, tx pgx.Tx, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bookings[b.ID] = &cp

	id := b.ID
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.bookings, id)
	})
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Booking, error) {
	return m.GetByID(ctx, id)
}

func (m *memBookings) UpdateTx(_ context.Context, tx pgx.Tx, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.bookings[b.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	prevCp := *prev
	b.UpdatedAt = time.Now()
	cp := *b
	m.bookings[b.ID] = &cp

	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.bookings[prevCp.ID] = &prevCp
	})
	return nil
}

func (m *memBookings) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.BookingStatusCreated && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// setCreatedAt backdates a booking for expiry tests.
func (m *memBookings) setCreatedAt(id uuid.UUID, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		b.CreatedAt = t
	}
}

// --- earning store ---

type memEarnings struct {
	mu         sync.Mutex
	earnings   []*models.CleanerEarning
	failOnPaid error
}

var _ EarningStore = (*memEarnings)(nil)

func (m *memEarnings) CreateTx(_ context.Context, tx pgx.Tx, e *models.CleanerEarning) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.earnings {
		if existing.BookingRef == e.BookingRef {
			return fmt.Errorf("duplicate key value violates unique constraint on booking_ref")
		}
	}
	e.CreatedAt = time.Now()
	cp := *e
	m.earnings = append(m.earnings, &cp)

	id := e.ID
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, ex := range m.earnings {
			if ex.ID == id {
				m.earnings = append(m.earnings[:i], m.earnings[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *memEarnings) ListPending(_ context.Context, cleanerID *uuid.UUID) ([]models.CleanerEarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CleanerEarning
	for _, e := range m.earnings {
		if e.Status != models.EarningStatusPending {
			continue
		}
		if cleanerID != nil && e.CleanerID != *cleanerID {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memEarnings) MarkBatchedTx(_ context.Context, tx pgx.Tx, ids []uuid.UUID, payoutID uuid.UUID) error {
	return m.transition(tx, ids, models.EarningStatusPending, models.EarningStatusBatched, &payoutID)
}

func (m *memEarnings) MarkPaidTx(_ context.Context, tx pgx.Tx, ids []uuid.UUID, payoutID uuid.UUID) error {
	if m.failOnPaid != nil {
		return m.failOnPaid
	}
	return m.transition(tx, ids, models.EarningStatusBatched, models.EarningStatusPaid, &payoutID)
}

func (m *memEarnings) RevertBatchedTx(_ context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	return m.transition(tx, ids, models.EarningStatusBatched, models.EarningStatusPending, nil)
}

// transition applies a guarded status update, matching the repository's
// UPDATE ... WHERE status = $from. payoutID nil clears the back-reference.
func (m *memEarnings) transition(tx pgx.Tx, ids []uuid.UUID, from, to string, payoutID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	type prev struct {
		e        *models.CleanerEarning
		status   string
		payoutID *uuid.UUID
	}
	var touched []prev
	for _, e := range m.earnings {
		if want[e.ID] && e.Status == from {
			touched = append(touched, prev{e: e, status: e.Status, payoutID: e.PayoutID})
			e.Status = to
			if payoutID != nil {
				pid := *payoutID
				e.PayoutID = &pid
			} else {
				e.PayoutID = nil
			}
		}
	}
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, p := range touched {
			p.e.Status = p.status
			p.e.PayoutID = p.payoutID
		}
	})
	return nil
}

func (m *memEarnings) byStatus(status string) []models.CleanerEarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CleanerEarning
	for _, e := range m.earnings {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	return out
}

func (m *memEarnings) byBooking(bookingID uuid.UUID) []*models.CleanerEarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CleanerEarning
	for _, e := range m.earnings {
		if e.BookingRef == bookingID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// --- payout store ---

type memPayouts struct {
	mu      sync.Mutex
	payouts map[uuid.UUID]*models.Payout
}

func newMemPayouts() *memPayouts {
	return &memPayouts{payouts: make(map[uuid.UUID]*models.Payout)}
}

var _ PayoutStore = (*memPayouts)(nil)

func (m *memPayouts) CreateTx(_ context.Context, tx pgx.Tx, p *models.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.payouts[p.ID] = &cp

	id := p.ID
	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.payouts, id)
	})
	return nil
}

func (m *memPayouts) MarkPaidTx(_ context.Context, tx pgx.Tx, id uuid.UUID, transferRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok || p.Status != models.PayoutStatusProcessing {
		return pgx.ErrNoRows
	}
	p.Status = models.PayoutStatusPaid
	ref := transferRef
	p.ExternalTransferRef = &ref

	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		p.Status = models.PayoutStatusProcessing
		p.ExternalTransferRef = nil
	})
	return nil
}

func (m *memPayouts) MarkFailedTx(_ context.Context, tx pgx.Tx, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok || p.Status != models.PayoutStatusProcessing {
		return pgx.ErrNoRows
	}
	p.Status = models.PayoutStatusFailed
	r := reason
	p.FailureReason = &r

	registerUndo(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		p.Status = models.PayoutStatusProcessing
		p.FailureReason = nil
	})
	return nil
}

func (m *memPayouts) byStatus(status string) []models.Payout {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payout
	for _, p := range m.payouts {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	return out
}

// --- account store ---

type memAccounts struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*models.Account
	profiles  map[uuid.UUID]*models.CleanerProfile
	audiences map[string][]uuid.UUID
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		accounts:  make(map[uuid.UUID]*models.Account),
		profiles:  make(map[uuid.UUID]*models.CleanerProfile),
		audiences: make(map[string][]uuid.UUID),
	}
}

var _ AccountStore = (*memAccounts)(nil)

func (m *memAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) GetCleanerProfile(_ context.Context, accountID uuid.UUID) (*models.CleanerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *memAccounts) UpsertCleanerProfile(_ context.Context, p *models.CleanerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.AccountID] = &cp
	return nil
}

func (m *memAccounts) Audience(_ context.Context, audience string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.audiences[audience]
	if !ok {
		return nil, fmt.Errorf("unknown audience %q", audience)
	}
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out, nil
}

// --- audit store ---

type memAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

var _ AuditStore = (*memAudit)(nil)

// Log mirrors the audit_log NOT NULL columns so an entry the real schema
// would reject is rejected here too.
func (m *memAudit) Log(_ context.Context, entry models.AuditLog) error {
	if entry.ActorType == "" {
		return fmt.Errorf("null value in column \"actor_type\" violates not-null constraint")
	}
	if entry.Action == "" {
		return fmt.Errorf("null value in column \"action\" violates not-null constraint")
	}
	if entry.EntityType == "" {
		return fmt.Errorf("null value in column \"entity_type\" violates not-null constraint")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memAudit) byAction(action string) []models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLog
	for _, l := range m.logs {
		if l.Action == action {
			out = append(out, l)
		}
	}
	return out
}

// --- publisher ---

type memPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

var _ events.Publisher = (*memPublisher)(nil)

func (m *memPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memPublisher) byType(eventType string) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Event
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// --- transfer client ---

type fakeTransferClient struct {
	mu     sync.Mutex
	calls  []uuid.UUID
	failOn map[uuid.UUID]error
}

func newFakeTransferClient() *fakeTransferClient {
	return &fakeTransferClient{failOn: make(map[uuid.UUID]error)}
}

var _ TransferClient = (*fakeTransferClient)(nil)

func (c *fakeTransferClient) Transfer(_ context.Context, cleanerID uuid.UUID, _ decimal.Decimal, reference string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cleanerID)
	if err, ok := c.failOn[cleanerID]; ok {
		return "", err
	}
	return "tr_" + reference, nil
}

func (c *fakeTransferClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
