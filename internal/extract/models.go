// Package extract adapts the clinical document warehouse into typed records.
// Rows are validated and converted once at this boundary; the reporting core
// consumes them as immutable value types.
package extract

import "time"

// PatientRecord is one raw patient row. The same identifier may appear more
// than once when a patient exists in several source systems; reconciliation
// collapses those. Flags are set by the reconciler, never by the adapter.
type PatientRecord struct {
	ID          string
	DisplayName string
	BirthDate   *time.Time
	// ObservedAt is the warehouse row timestamp. Last-write-wins dedup is
	// deterministic by this value, not by extraction order.
	ObservedAt time.Time

	IsTest        bool
	IsPlaceholder bool
	IsDuplicate   bool
}

// DocumentRecord is one raw document row. Any of the candidate dates may be
// nil; the temporal resolver picks the authoritative one. PatientID is a weak
// reference: patient reconciliation changes how documents are counted, never
// the document itself.
type DocumentRecord struct {
	ID         string
	Source     string
	Type       string
	Title      string
	PatientID  string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
	UploadedAt *time.Time
}

// UserRecord is one raw user row joined with its query log timestamps.
// Username is the raw display name; alias resolution maps it to a canonical
// identity.
type UserRecord struct {
	ID         string
	Username   string
	QueryTimes []time.Time
}

// ArchiveRecord captures per-source archive metadata. Age is always computed
// against report generation time, never stored.
type ArchiveRecord struct {
	Source         string
	OldestDocument time.Time
	Status         string
}

// AgeYears returns the archive age in fractional years at the given instant.
func (a ArchiveRecord) AgeYears(now time.Time) float64 {
	if a.OldestDocument.IsZero() || a.OldestDocument.After(now) {
		return 0
	}
	return now.Sub(a.OldestDocument).Hours() / 24 / 365.25
}

// Snapshot is one immutable extraction of the warehouse. Each report run gets
// its own snapshot; nothing here is shared or mutated across runs.
type Snapshot struct {
	Patients  []PatientRecord
	Documents []DocumentRecord
	Users     []UserRecord
	Archives  []ArchiveRecord
	TakenAt   time.Time
}
