package matcher

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/domain/tenant"
)

// Matcher attributes payment senders to tenants. Resolution order: override
// table, exact name, then fuzzy containment, co-occurrence and unique surname.
// Anything ambiguous ends unmatched.
type Matcher struct {
	overrides *OverrideTable
	logger    *slog.Logger
}

func New(overrides *OverrideTable, logger *slog.Logger) *Matcher {
	return &Matcher{overrides: overrides, logger: logger}
}

// Match returns exactly one MatchedPayment per input, in input order
func (m *Matcher) Match(payments []payment.ParsedPayment, snapshot tenant.Snapshot) []payment.MatchedPayment {
	idx := newIndex(snapshot)
	matched := make([]payment.MatchedPayment, len(payments))
	for i, p := range payments {
		matched[i] = m.matchOne(p, idx)
	}
	return matched
}

// MatchOne resolves a single payment against the snapshot
func (m *Matcher) MatchOne(p payment.ParsedPayment, snapshot tenant.Snapshot) payment.MatchedPayment {
	return m.matchOne(p, newIndex(snapshot))
}

func (m *Matcher) matchOne(p payment.ParsedPayment, idx *index) payment.MatchedPayment {
	sender := Normalize(p.SenderName)

	if tgt, ok := m.overrides.lookup(sender); ok {
		return m.resolveOverride(p, tgt, idx)
	}

	if t := idx.exact(sender); t != nil {
		return resolved(p, t, payment.ConfidenceExact)
	}

	for _, strategy := range []func(string) *tenant.Tenant{idx.containment, idx.coOccurrence, idx.uniqueSurname} {
		if t := strategy(sender); t != nil {
			return resolved(p, t, payment.ConfidenceFuzzy)
		}
	}

	return unmatched(p)
}

func (m *Matcher) resolveOverride(p payment.ParsedPayment, tgt target, idx *index) payment.MatchedPayment {
	if tgt.unknown {
		return unmatched(p)
	}

	var t *tenant.Tenant
	if tgt.tenantID != uuid.Nil {
		t = idx.byID[tgt.tenantID]
	} else {
		t = idx.exact(tgt.tenantName)
	}
	if t == nil {
		m.logger.Warn("Override target does not resolve to one active tenant",
			"sender", p.SenderName,
			"tenant_name", tgt.tenantName,
			"tenant_id", tgt.tenantID)
		return unmatched(p)
	}
	return resolved(p, t, payment.ConfidenceManual)
}

func resolved(p payment.ParsedPayment, t *tenant.Tenant, confidence payment.Confidence) payment.MatchedPayment {
	id := t.ID
	return payment.MatchedPayment{
		ParsedPayment: p,
		TenantID:      &id,
		TenantName:    t.FullName(),
		PropertyID:    t.PropertyID,
		Confidence:    confidence,
	}
}

func unmatched(p payment.ParsedPayment) payment.MatchedPayment {
	return payment.MatchedPayment{ParsedPayment: p, Confidence: payment.ConfidenceUnmatched}
}
