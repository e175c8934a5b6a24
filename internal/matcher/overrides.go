package matcher

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// UnknownSentinel as an override target forces a sender to stay unmatched
const UnknownSentinel = "unknown"

var ErrInvalidOverride = errors.New("invalid override entry")

// Override maps one observed sender name to a tenant, or marks it as not a tenant
type Override struct {
	Sender   string `yaml:"sender"`
	Tenant   string `yaml:"tenant,omitempty"`
	TenantID string `yaml:"tenant_id,omitempty"`
	Unknown  bool   `yaml:"unknown,omitempty"`
}

// overridesFile is the on-disk layout. Aliases is the short form
// "sender: canonical tenant name" (or "sender: unknown").
type overridesFile struct {
	Aliases   map[string]string `yaml:"aliases"`
	Overrides []Override        `yaml:"overrides"`
}

type target struct {
	unknown    bool
	tenantName string
	tenantID   uuid.UUID
}

// OverrideTable is the curated sender lookup consulted before any name matching
type OverrideTable struct {
	entries map[string]target
}

// NewOverrideTable validates entries and indexes them by normalized sender
func NewOverrideTable(entries []Override) (*OverrideTable, error) {
	table := &OverrideTable{entries: make(map[string]target, len(entries))}
	for i, e := range entries {
		key := Normalize(e.Sender)
		if key == "" {
			return nil, fmt.Errorf("%w: entry %d has no sender", ErrInvalidOverride, i)
		}

		t, err := e.target()
		if err != nil {
			return nil, fmt.Errorf("%w: sender %q: %v", ErrInvalidOverride, e.Sender, err)
		}
		if existing, ok := table.entries[key]; ok && existing != t {
			return nil, fmt.Errorf("%w: sender %q mapped twice", ErrInvalidOverride, e.Sender)
		}
		table.entries[key] = t
	}
	return table, nil
}

func (e Override) target() (target, error) {
	name := strings.TrimSpace(e.Tenant)
	id := strings.TrimSpace(e.TenantID)
	if strings.EqualFold(name, UnknownSentinel) {
		name = ""
		e.Unknown = true
	}

	set := 0
	for _, present := range []bool{e.Unknown, name != "", id != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return target{}, errors.New("exactly one of tenant, tenant_id or unknown is required")
	}

	switch {
	case e.Unknown:
		return target{unknown: true}, nil
	case id != "":
		parsed, err := uuid.Parse(id)
		if err != nil {
			return target{}, fmt.Errorf("tenant_id: %w", err)
		}
		return target{tenantID: parsed}, nil
	default:
		return target{tenantName: Normalize(name)}, nil
	}
}

// LoadOverrides reads an override file. An empty path yields an empty table.
func LoadOverrides(path string) (*OverrideTable, error) {
	if path == "" {
		return NewOverrideTable(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file %s: %w", path, err)
	}

	entries := make([]Override, 0, len(file.Aliases)+len(file.Overrides))
	for sender, tenantName := range file.Aliases {
		entries = append(entries, Override{Sender: sender, Tenant: tenantName})
	}
	entries = append(entries, file.Overrides...)

	table, err := NewOverrideTable(entries)
	if err != nil {
		return nil, fmt.Errorf("overrides file %s: %w", path, err)
	}
	return table, nil
}

func (t *OverrideTable) lookup(normalizedSender string) (target, bool) {
	if t == nil {
		return target{}, false
	}
	tgt, ok := t.entries[normalizedSender]
	return tgt, ok
}

// Len returns the number of distinct senders in the table
func (t *OverrideTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
