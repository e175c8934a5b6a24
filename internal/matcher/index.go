package matcher

import (
	"github.com/google/uuid"

	"github.com/rentroll-payment-ledger/internal/domain/tenant"
)

type candidate struct {
	tenant  *tenant.Tenant
	first   []string
	last    string
	forward string
	reverse string
}

// index is a tenant snapshot prepared for name lookups
type index struct {
	candidates []*candidate
	byName     map[string][]*candidate
	bySurname  map[string][]*candidate
	byID       map[uuid.UUID]*tenant.Tenant
}

func newIndex(snapshot tenant.Snapshot) *index {
	idx := &index{
		byName:    make(map[string][]*candidate),
		bySurname: make(map[string][]*candidate),
		byID:      make(map[uuid.UUID]*tenant.Tenant, len(snapshot)),
	}
	for _, t := range snapshot {
		first := Normalize(t.FirstName)
		last := Normalize(t.LastName)
		c := &candidate{
			tenant:  t,
			first:   tokens(first),
			last:    last,
			forward: Normalize(first + " " + last),
			reverse: Normalize(last + " " + first),
		}
		idx.candidates = append(idx.candidates, c)
		idx.byID[t.ID] = t

		idx.byName[c.forward] = append(idx.byName[c.forward], c)
		if c.reverse != c.forward {
			idx.byName[c.reverse] = append(idx.byName[c.reverse], c)
		}
		if last != "" {
			idx.bySurname[last] = append(idx.bySurname[last], c)
		}
	}
	return idx
}

// only returns the single tenant behind a candidate list, or nil when there
// are none or several
func only(candidates []*candidate) *tenant.Tenant {
	var found *tenant.Tenant
	for _, c := range candidates {
		if found != nil && found.ID != c.tenant.ID {
			return nil
		}
		found = c.tenant
	}
	return found
}

// exact compares against "first last" and "last first"
func (idx *index) exact(sender string) *tenant.Tenant {
	return only(idx.byName[sender])
}

// containment accepts a tenant whose full name sits inside the sender, or the reverse
func (idx *index) containment(sender string) *tenant.Tenant {
	var hits []*candidate
	for _, c := range idx.candidates {
		if c.last == "" || len(c.first) == 0 {
			continue
		}
		if containsPhrase(sender, c.forward) || containsPhrase(sender, c.reverse) ||
			containsPhrase(c.forward, sender) || containsPhrase(c.reverse, sender) {
			hits = append(hits, c)
		}
	}
	return only(hits)
}

// coOccurrence accepts a tenant whose first and last names both appear anywhere in the sender
func (idx *index) coOccurrence(sender string) *tenant.Tenant {
	present := make(map[string]bool)
	for _, tok := range tokens(sender) {
		present[tok] = true
	}

	var hits []*candidate
	for _, c := range idx.candidates {
		if c.last == "" || len(c.first) == 0 {
			continue
		}
		ok := true
		for _, tok := range append(tokens(c.last), c.first...) {
			if !present[tok] {
				ok = false
				break
			}
		}
		if ok {
			hits = append(hits, c)
		}
	}
	return only(hits)
}

// uniqueSurname accepts a tenant when a sender token of two or more characters
// is a surname no other tenant carries
func (idx *index) uniqueSurname(sender string) *tenant.Tenant {
	var hits []*candidate
	for _, tok := range tokens(sender) {
		if len([]rune(tok)) < 2 {
			continue
		}
		if t := only(idx.bySurname[tok]); t != nil {
			hits = append(hits, idx.bySurname[tok]...)
		}
	}
	return only(hits)
}
