package reconcile

import (
	"sort"
	"time"

	"dwhmon/internal/extract"
)

// IdentifierConflict records two raw rows claiming the same identifier with
// different metadata. Last-write-wins by observation timestamp; the loser is
// kept here for operator review.
type IdentifierConflict struct {
	ID          string `json:"id"`
	KeptName    string `json:"kept_name"`
	DroppedName string `json:"dropped_name"`
}

// DedupReport tallies every reconciliation decision so operators can audit
// what was excluded instead of trusting silent corrections.
type DedupReport struct {
	Input             int                     `json:"input"`
	Canonical         int                     `json:"canonical"`
	Skipped           int                     `json:"skipped"`
	TestExcluded      int                     `json:"test_excluded"`
	DuplicateExcluded int                     `json:"duplicate_excluded"`
	PlaceholdersKept  int                     `json:"placeholders_kept"`
	KeptByCategory    map[string]int          `json:"kept_by_category,omitempty"`
	Conflicts         []IdentifierConflict    `json:"conflicts,omitempty"`
	Excluded          []extract.PatientRecord `json:"excluded,omitempty"`
}

// ReconcilePatients collapses raw patient rows into canonical records.
// Rule precedence: always-duplicate, then keep-list, then test-pattern, then
// last-write-wins dedup by identifier. Malformed rows (no identifier) are
// skipped and tallied, never fatal. Excluded rows are returned on the report
// with their exclusion flag set. The result is independent of input order.
func ReconcilePatients(raw []extract.PatientRecord, rules Rules) ([]extract.PatientRecord, DedupReport) {
	report := DedupReport{Input: len(raw)}
	byID := make(map[string]extract.PatientRecord)

	for _, rec := range raw {
		if rec.ID == "" {
			report.Skipped++
			continue
		}

		switch category, kept := rules.keepCategory(rec.ID); {
		case rules.alwaysDuplicateID(rec.ID) || rules.matchesDuplicateToken(rec.DisplayName):
			rec.IsDuplicate = true
			report.DuplicateExcluded++
			report.Excluded = append(report.Excluded, rec)
			continue
		case kept:
			// The placeholder tag marks records the keep-list rescued from
			// test exclusion. Keep-listed records that match no test pattern
			// pass through as ordinary patients.
			if rules.matchesTestToken(rec.DisplayName) {
				rec.IsPlaceholder = true
				report.PlaceholdersKept++
				if report.KeptByCategory == nil {
					report.KeptByCategory = make(map[string]int)
				}
				report.KeptByCategory[category]++
			}
		case rules.matchesTestToken(rec.DisplayName):
			rec.IsTest = true
			report.TestExcluded++
			report.Excluded = append(report.Excluded, rec)
			continue
		}

		prev, seen := byID[rec.ID]
		if !seen {
			byID[rec.ID] = rec
			continue
		}
		kept, dropped := newerOf(prev, rec)
		byID[rec.ID] = kept
		if prev.DisplayName != rec.DisplayName || !timePtrEqual(prev.BirthDate, rec.BirthDate) {
			report.Conflicts = append(report.Conflicts, IdentifierConflict{
				ID:          rec.ID,
				KeptName:    kept.DisplayName,
				DroppedName: dropped.DisplayName,
			})
		}
	}

	canonical := make([]extract.PatientRecord, 0, len(byID))
	for _, rec := range byID {
		canonical = append(canonical, rec)
	}
	sort.Slice(canonical, func(i, j int) bool { return canonical[i].ID < canonical[j].ID })
	sort.Slice(report.Conflicts, func(i, j int) bool { return report.Conflicts[i].ID < report.Conflicts[j].ID })
	sort.Slice(report.Excluded, func(i, j int) bool {
		if report.Excluded[i].ID != report.Excluded[j].ID {
			return report.Excluded[i].ID < report.Excluded[j].ID
		}
		return report.Excluded[i].DisplayName < report.Excluded[j].DisplayName
	})
	report.Canonical = len(canonical)
	return canonical, report
}

// newerOf picks the more recently observed record. Equal timestamps fall back
// to display name ordering so the winner never depends on input order.
func newerOf(a, b extract.PatientRecord) (kept, dropped extract.PatientRecord) {
	if a.ObservedAt.After(b.ObservedAt) {
		return a, b
	}
	if b.ObservedAt.After(a.ObservedAt) {
		return b, a
	}
	if a.DisplayName <= b.DisplayName {
		return a, b
	}
	return b, a
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
