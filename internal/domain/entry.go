package domain

import (
	"strings"
	"time"
)

// CandidateEntry is a discovered gazette entry that has not been processed yet.
type CandidateEntry struct {
	URL             string
	StorageKey      string
	Section         Section
	PublicationDate time.Time
}

// StructuredEntry maps field names (secao, orgao, ementa, ...) to text.
type StructuredEntry map[string]string

// Field returns the trimmed value and whether it can be evaluated.
func (e StructuredEntry) Field(name string) (string, bool) {
	value, ok := e[name]
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// CapturedEntry is what gets persisted when a run saves entries.
type CapturedEntry struct {
	URL        string            `json:"url"`
	StorageKey string            `json:"storage_key"`
	Section    Section           `json:"section"`
	Fields     StructuredEntry   `json:"fields"`
	Raw        map[string]string `json:"raw_article,omitempty"`
	CapturedAt time.Time         `json:"capture_date"`
}

// FetchResult is the success side of a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	Content    []byte
}
