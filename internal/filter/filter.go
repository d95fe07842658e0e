// Package filter decides which listings are reportable. Listings dropped
// here never reach the rendered report or the storage projection.
package filter

import (
	"strings"

	"passportwatch/internal/models"
	"passportwatch/internal/normalize"
)

// TrimFilter excludes listings whose trim level matches a denylist entry.
// The denylist is configuration, not domain knowledge: it comes from the
// environment so rules can be tuned without touching pipeline logic.
type TrimFilter struct {
	denylist []string
}

// NewTrimFilter builds a filter from denylist entries. Entries are matched
// case-insensitively as substrings of the resolved trim; empty entries are
// ignored.
func NewTrimFilter(denylist []string) *TrimFilter {
	entries := make([]string, 0, len(denylist))
	for _, entry := range denylist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	return &TrimFilter{denylist: entries}
}

// Excluded reports whether the listing should be dropped from the report.
func (f *TrimFilter) Excluded(raw models.RawListing) bool {
	trim := strings.ToLower(normalize.Trim(raw))
	if trim == "" {
		return false
	}
	for _, entry := range f.denylist {
		if strings.Contains(trim, entry) {
			return true
		}
	}
	return false
}

// Apply returns the listings that survive the filter, preserving order.
func (f *TrimFilter) Apply(listings []models.RawListing) []models.RawListing {
	kept := make([]models.RawListing, 0, len(listings))
	for _, listing := range listings {
		if !f.Excluded(listing) {
			kept = append(kept, listing)
		}
	}
	return kept
}
