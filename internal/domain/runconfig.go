package domain

import "strings"

const (
	// ReferenceNow resolves to the current Brasília day.
	ReferenceNow = "now"
	// ReferenceYesterday resolves to the day before the current Brasília day.
	ReferenceYesterday = "yesterday"
)

// RunConfig is the state carried between capture runs.
type RunConfig struct {
	ReferenceDate    string      `yaml:"reference_date"`
	DateFormat       string      `yaml:"date_format"`
	Sections         SectionList `yaml:"sections"`
	AllSections      SectionList `yaml:"all_sections"`
	LookBackDays     int         `yaml:"look_back_days"`
	BatchSize        *int        `yaml:"batch_size,omitempty"`
	ClearLedgerDaily bool        `yaml:"clear_ledger_daily"`
	NextBatchPending bool        `yaml:"next_batch_pending"`

	// Run options stored alongside the state.
	LedgerRef      string `yaml:"ledger_ref"`
	SaveEntries    bool   `yaml:"save_entries"`
	DeliverMatches bool   `yaml:"deliver_matches"`
}

// Validate rejects configs a run cannot start from.
func (c RunConfig) Validate() error {
	if strings.TrimSpace(c.ReferenceDate) == "" {
		return &ConfigError{Field: "reference_date", Reason: "is required"}
	}
	if strings.TrimSpace(c.DateFormat) == "" {
		return &ConfigError{Field: "date_format", Reason: "is required"}
	}
	if len(c.Sections) == 0 {
		return &ConfigError{Field: "sections", Reason: "is required"}
	}
	if len(c.AllSections) == 0 {
		return &ConfigError{Field: "all_sections", Reason: "is required"}
	}
	if c.LookBackDays > 0 {
		return &ConfigError{Field: "look_back_days", Reason: "must be zero or negative"}
	}
	if c.BatchSize != nil && *c.BatchSize <= 0 {
		return &ConfigError{Field: "batch_size", Reason: "must be positive when set"}
	}
	if strings.TrimSpace(c.LedgerRef) == "" {
		return &ConfigError{Field: "ledger_ref", Reason: "is required"}
	}
	return nil
}

// Clone returns a copy that shares no slices with c.
func (c RunConfig) Clone() RunConfig {
	out := c
	out.Sections = append(SectionList(nil), c.Sections...)
	out.AllSections = append(SectionList(nil), c.AllSections...)
	if c.BatchSize != nil {
		size := *c.BatchSize
		out.BatchSize = &size
	}
	return out
}
