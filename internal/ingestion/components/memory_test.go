package components

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
)

// fakeTx satisfies pgx.Tx for the in-memory store. Only Commit and Rollback are called.
type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct {
	begins int
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	db.begins++
	return fakeTx{}, nil
}

// memoryStore backs every repository with maps. Reads return copies so that
// only explicit writes change stored state.
type memoryStore struct {
	mu       sync.Mutex
	tenants  tenant.Snapshot
	payments map[payment.Key]*payment.Payment
	entries  []*ledger.Entry
	outbox   []*audit.Message
}

func newMemoryStore(tenants ...*tenant.Tenant) *memoryStore {
	return &memoryStore{
		tenants:  tenants,
		payments: make(map[payment.Key]*payment.Payment),
	}
}

func (s *memoryStore) repositories() Repositories {
	return Repositories{
		Tenants:  memoryTenants{s},
		Payments: memoryPayments{s},
		Ledger:   memoryLedger{s},
		Outbox:   memoryOutbox{s},
	}
}

func (s *memoryStore) ledgerOf(tenantID uuid.UUID) []*ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Entry
	for _, e := range s.entries {
		if e.TenantID == tenantID {
			c := *e
			out = append(out, &c)
		}
	}
	ledger.SortChronologically(out)
	return out
}

type memoryTenants struct{ s *memoryStore }

func (r memoryTenants) ListActive(context.Context) (tenant.Snapshot, error) {
	return append(tenant.Snapshot(nil), r.s.tenants...), nil
}

func (r memoryTenants) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	if t := r.s.tenants.ByID(id); t != nil {
		return t, nil
	}
	return nil, tenant.ErrTenantNotFound{TenantID: id}
}

func (r memoryTenants) LockForUpdate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return r.GetByID(ctx, id)
}

func (r memoryTenants) WithTx(pgx.Tx) tenant.Repository { return r }

type memoryPayments struct{ s *memoryStore }

func (r memoryPayments) Create(_ context.Context, p *payment.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[p.Key()]; ok {
		return payment.ErrDuplicatePayment{Key: p.Key()}
	}
	c := *p
	r.s.payments[p.Key()] = &c
	return nil
}

func (r memoryPayments) GetByExternalID(_ context.Context, externalID string, method payment.Method) (*payment.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := payment.Key{ExternalID: externalID, Method: method}
	if p, ok := r.s.payments[key]; ok {
		c := *p
		return &c, nil
	}
	return nil, payment.ErrPaymentNotFound{Key: key}
}

func (r memoryPayments) ExistsByExternalID(_ context.Context, externalID string, method payment.Method) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.payments[payment.Key{ExternalID: externalID, Method: method}]
	return ok, nil
}

func (r memoryPayments) ListByTenant(_ context.Context, tenantID uuid.UUID, _, _ int) ([]*payment.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*payment.Payment
	for _, p := range r.s.payments {
		if p.TenantID == tenantID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memoryPayments) WithTx(pgx.Tx) payment.Repository { return r }

type memoryLedger struct{ s *memoryStore }

func (r memoryLedger) Create(_ context.Context, entry *ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *entry
	r.s.entries = append(r.s.entries, &c)
	return nil
}

func (r memoryLedger) GetLatestByTenant(_ context.Context, tenantID uuid.UUID) (*ledger.Entry, error) {
	entries := r.s.ledgerOf(tenantID)
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1], nil
}

func (r memoryLedger) ListByTenant(_ context.Context, tenantID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	entries := r.s.ledgerOf(tenantID)
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r memoryLedger) ListByTenantForUpdate(_ context.Context, tenantID uuid.UUID) ([]*ledger.Entry, error) {
	return r.s.ledgerOf(tenantID), nil
}

func (r memoryLedger) CountByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	return int64(len(r.s.ledgerOf(tenantID))), nil
}

func (r memoryLedger) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ID == id {
			e.Balance = balance
			return nil
		}
	}
	return ledger.ErrEntryNotFound{EntryID: id}
}

func (r memoryLedger) WithTx(pgx.Tx) ledger.Repository { return r }

type memoryOutbox struct{ s *memoryStore }

func (r memoryOutbox) Create(_ context.Context, message *audit.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	message.ID = int64(len(r.s.outbox) + 1)
	r.s.outbox = append(r.s.outbox, message)
	return nil
}

func (r memoryOutbox) GetPending(context.Context, int) ([]*audit.Message, error) {
	return nil, nil
}

func (r memoryOutbox) UpdateStatus(context.Context, int64, audit.OutboxStatus) error { return nil }

func (r memoryOutbox) IncrementAttempts(context.Context, int64) error { return nil }

func (r memoryOutbox) WithTx(pgx.Tx) audit.OutboxRepository { return r }
