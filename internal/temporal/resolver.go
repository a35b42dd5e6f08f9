// Package temporal picks the single authoritative date for a document out of
// its candidate date fields. Pure and deterministic so reports stay
// reproducible.
package temporal

import (
	"time"

	"dwhmon/internal/extract"
	dErrors "dwhmon/pkg/domain-errors"
)

// Field names one candidate date field of a document.
type Field string

const (
	FieldCreated  Field = "created"
	FieldModified Field = "modified"
	FieldUploaded Field = "uploaded"
)

// Resolution is the outcome of resolving one document.
type Resolution struct {
	// Date is the authoritative date. Zero when Resolved is false.
	Date time.Time
	// Source is the field the date came from.
	Source Field
	// Resolved is false when no candidate date was present; the document is
	// excluded from time-bucketed aggregates but still counted in totals.
	Resolved bool
	// Suspect marks a date outside the sanity bounds. Suspect documents stay
	// in counts but are excluded from trend views.
	Suspect bool
}

// Policy configures date precedence and sanity bounds.
type Policy struct {
	// Precedence is the field order to try. The default prefers the creation
	// date when it is not later than the modification date; which source
	// field is truly authoritative is an open investigation upstream, hence
	// configurable rather than fixed.
	Precedence []Field `json:"precedence"`
	// MaxPastYears and MaxFutureYears bound plausible dates relative to
	// report generation time.
	MaxPastYears   int `json:"max_past_years"`
	MaxFutureYears int `json:"max_future_years"`
}

// DefaultPolicy returns the documented default precedence and bounds.
func DefaultPolicy() Policy {
	return Policy{
		Precedence:     []Field{FieldCreated, FieldModified, FieldUploaded},
		MaxPastYears:   50,
		MaxFutureYears: 1,
	}
}

// Validate rejects unknown or duplicated precedence fields.
func (p Policy) Validate() error {
	if len(p.Precedence) == 0 {
		return dErrors.New(dErrors.CodeConfig, "date precedence must name at least one field")
	}
	seen := make(map[Field]struct{}, len(p.Precedence))
	for _, f := range p.Precedence {
		switch f {
		case FieldCreated, FieldModified, FieldUploaded:
		default:
			return dErrors.Newf(dErrors.CodeConfig, "unknown date field %q in precedence", string(f))
		}
		if _, dup := seen[f]; dup {
			return dErrors.Newf(dErrors.CodeConfig, "date field %q appears twice in precedence", string(f))
		}
		seen[f] = struct{}{}
	}
	if p.MaxPastYears <= 0 || p.MaxFutureYears < 0 {
		return dErrors.New(dErrors.CodeConfig, "suspect-date bounds must be positive")
	}
	return nil
}

// Resolve picks the authoritative date for doc at report time now.
func (p Policy) Resolve(doc extract.DocumentRecord, now time.Time) Resolution {
	for _, field := range p.Precedence {
		candidate := candidateFor(doc, field)
		if candidate == nil {
			continue
		}
		// The creation date only wins while it is not later than the
		// modification date; a creation after modification means the source
		// system rewrote history and the modification date is more trustworthy.
		if field == FieldCreated && doc.ModifiedAt != nil && candidate.After(*doc.ModifiedAt) {
			continue
		}
		res := Resolution{Date: *candidate, Source: field, Resolved: true}
		res.Suspect = p.suspect(*candidate, now)
		return res
	}
	return Resolution{}
}

func (p Policy) suspect(date, now time.Time) bool {
	return date.Before(now.AddDate(-p.MaxPastYears, 0, 0)) ||
		date.After(now.AddDate(p.MaxFutureYears, 0, 0))
}

func candidateFor(doc extract.DocumentRecord, field Field) *time.Time {
	switch field {
	case FieldCreated:
		return doc.CreatedAt
	case FieldModified:
		return doc.ModifiedAt
	case FieldUploaded:
		return doc.UploadedAt
	}
	return nil
}
