// Package aggregate groups reconciled records along reporting dimensions.
// Every function here is pure and order-independent: buckets are map-keyed,
// and outputs are sorted on stable keys before they are returned, because
// upstream extraction order is not guaranteed stable.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	"dwhmon/internal/extract"
	"dwhmon/internal/temporal"
	dErrors "dwhmon/pkg/domain-errors"
)

// Month is a calendar month bucket.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf buckets a time into its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Ratio is a percentage with a defined zero-denominator sentinel: Valid is
// false when the total was zero, rendered as "n/a" rather than failing.
type Ratio struct {
	Valid bool    `json:"valid"`
	Value float64 `json:"value"`
}

// NewRatio computes count/total, yielding the invalid sentinel for total == 0.
func NewRatio(count, total int) Ratio {
	if total == 0 {
		return Ratio{}
	}
	return Ratio{Valid: true, Value: float64(count) / float64(total)}
}

func (r Ratio) String() string {
	if !r.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", r.Value*100)
}

// ResolvedDocument pairs a document with its temporal resolution.
type ResolvedDocument struct {
	extract.DocumentRecord
	Resolution temporal.Resolution
}

// Settings configures the aggregation dimensions.
type Settings struct {
	// TopUsers caps the user activity listings.
	TopUsers int `json:"top_users"`
	// RecentWindowDays is the window for the recent-documents distribution.
	RecentWindowDays int `json:"recent_window_days"`
	// DelayWindowMonths is the trailing window for upload-delay statistics.
	DelayWindowMonths int `json:"delay_window_months"`
	// DelayExcludedSources are origins whose delay figures are known noise
	// (appointment connectors backdate creation dates).
	DelayExcludedSources []string `json:"delay_excluded_sources"`
	// ArchiveThresholdYears triggers the over-threshold archive alert.
	ArchiveThresholdYears int `json:"archive_threshold_years"`
	// RetentionYearsBySource overrides DefaultRetentionYears per source for
	// deletion-candidate counting.
	RetentionYearsBySource map[string]int `json:"retention_years_by_source"`
	DefaultRetentionYears  int            `json:"default_retention_years"`
	// GroupPrefixes collapses source families: any source starting with the
	// key is reported under the value.
	GroupPrefixes map[string]string `json:"group_prefixes"`
	// OtherShare is the share below which a source is folded into "Other" in
	// the full-history distribution.
	OtherShare float64 `json:"other_share"`
}

// DefaultSettings mirrors the production reporting configuration.
func DefaultSettings() Settings {
	return Settings{
		TopUsers:              10,
		RecentWindowDays:      7,
		DelayWindowMonths:     1,
		DelayExcludedSources:  []string{"RDV_DOCTOLIB"},
		ArchiveThresholdYears: 20,
		DefaultRetentionYears: 20,
		GroupPrefixes: map[string]string{
			"Easily":      "Easily",
			"DOC_EXTERNE": "DOC_EXTERNE",
		},
		OtherShare: 0.01,
	}
}

// Validate rejects settings that would make aggregates meaningless.
func (s Settings) Validate() error {
	if s.TopUsers <= 0 {
		return dErrors.New(dErrors.CodeConfig, "top_users must be positive")
	}
	if s.RecentWindowDays <= 0 || s.DelayWindowMonths <= 0 {
		return dErrors.New(dErrors.CodeConfig, "aggregation windows must be positive")
	}
	if s.ArchiveThresholdYears <= 0 || s.DefaultRetentionYears <= 0 {
		return dErrors.New(dErrors.CodeConfig, "retention thresholds must be positive")
	}
	if s.OtherShare < 0 || s.OtherShare >= 1 {
		return dErrors.New(dErrors.CodeConfig, "other_share must be in [0, 1)")
	}
	for src, years := range s.RetentionYearsBySource {
		if years <= 0 {
			return dErrors.Newf(dErrors.CodeConfig, "retention for source %q must be positive", src)
		}
	}
	return nil
}

// GroupSource maps a raw source code onto its reporting group.
func (s Settings) GroupSource(source string) string {
	for prefix, group := range s.GroupPrefixes {
		if strings.HasPrefix(source, prefix) {
			return group
		}
	}
	return source
}

func (s Settings) retentionYears(source string) int {
	if years, ok := s.RetentionYearsBySource[source]; ok {
		return years
	}
	return s.DefaultRetentionYears
}

func (s Settings) delayExcluded(source string) bool {
	for _, excluded := range s.DelayExcludedSources {
		if source == excluded {
			return true
		}
	}
	return false
}
