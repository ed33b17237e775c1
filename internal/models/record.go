// Package models defines the data types shared across the crawl pipeline.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical field names used in extraction rules and raw listings.
const (
	FieldTitle   = "title"
	FieldDate    = "date"
	FieldLink    = "link"
	FieldBudget  = "budget"
	FieldAddress = "address"
)

// recordIDLength is the number of hex characters kept from the SHA-256 digest.
const recordIDLength = 12

// RawListing is one candidate tender as sliced out of a source page,
// before any field normalization. It lives only for the duration of a run.
type RawListing struct {
	SourceSite string
	PageURL    string
	Fields     map[string]string
}

// Field returns the trimmed raw value for the given field name, or "".
func (l *RawListing) Field(name string) string {
	return strings.TrimSpace(l.Fields[name])
}

// Money is a decimal amount with an explicit ISO 4217 currency code.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// String renders the amount followed by the currency code, e.g. "12345.67 EUR".
func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}

// TenderRecord is the canonical, fully typed representation of a listing.
// Fields that could not be normalized are nil rather than dropped.
type TenderRecord struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Date         *time.Time `json:"date,omitempty"`
	Link         *string    `json:"link,omitempty"`
	Budget       *Money     `json:"budget,omitempty"`
	Address      *string    `json:"address,omitempty"`
	SourceSite   string     `json:"sourceSite"`
	FirstSeenRun time.Time  `json:"firstSeenRun"`
	LastSeenRun  time.Time  `json:"lastSeenRun"`
}

// RecordID derives the stable identity key for a listing. The link anchors
// the identity when present; re-extracting the same listing in a later run
// yields the same ID.
func RecordID(sourceSite, link, title string) string {
	anchor := link
	if anchor == "" {
		anchor = title
	}

	data := strings.Join([]string{sourceSite, anchor, title}, "|")
	hash := sha256.Sum256([]byte(data))

	return hex.EncodeToString(hash[:])[:recordIDLength]
}

// Table is the persisted record set, keyed by record ID with first-seen
// insertion order preserved.
type Table struct {
	records map[string]*TenderRecord
	order   []string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		records: make(map[string]*TenderRecord),
	}
}

// Get returns the record with the given ID, or nil.
func (t *Table) Get(id string) *TenderRecord {
	return t.records[id]
}

// Put inserts a record, or replaces the stored record with the same ID.
// Insertion order is kept for new IDs.
func (t *Table) Put(rec *TenderRecord) {
	if _, exists := t.records[rec.ID]; !exists {
		t.order = append(t.order, rec.ID)
	}

	t.records[rec.ID] = rec
}

// Delete removes the record with the given ID, if present.
func (t *Table) Delete(id string) {
	if _, exists := t.records[id]; !exists {
		return
	}

	delete(t.records, id)

	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)

			break
		}
	}
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns all records in first-seen order.
func (t *Table) Records() []*TenderRecord {
	out := make([]*TenderRecord, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.records[id])
	}

	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	clone := NewTable()

	for _, rec := range t.Records() {
		c := *rec
		if rec.Link != nil {
			link := *rec.Link
			c.Link = &link
		}

		if rec.Address != nil {
			addr := *rec.Address
			c.Address = &addr
		}

		if rec.Budget != nil {
			budget := *rec.Budget
			c.Budget = &budget
		}

		if rec.Date != nil {
			date := *rec.Date
			c.Date = &date
		}

		clone.Put(&c)
	}

	return clone
}
