package aggregate

import (
	"sort"
	"time"
)

// SourceCount is one source bucket of the document distribution.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Share  Ratio  `json:"share"`
}

// MonthlyCount is one month × source bucket.
type MonthlyCount struct {
	Source string `json:"source"`
	Month  Month  `json:"month"`
	Count  int    `json:"count"`
}

// TypeCount is one document-type bucket.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// CountBySource counts every document per grouped source, including documents
// with unresolved dates: totals never depend on temporal resolution.
func (s Settings) CountBySource(docs []ResolvedDocument) []SourceCount {
	counts := make(map[string]int)
	for _, doc := range docs {
		counts[s.GroupSource(doc.Source)]++
	}
	return toSourceCounts(counts)
}

// Distribution is CountBySource with small sources folded into "Other".
// Folding applies only to the full-history view; recent views keep every
// source visible so connector outages stand out.
func (s Settings) Distribution(docs []ResolvedDocument) []SourceCount {
	counts := make(map[string]int)
	total := 0
	for _, doc := range docs {
		counts[s.GroupSource(doc.Source)]++
		total++
	}
	if total == 0 {
		return nil
	}
	folded := make(map[string]int, len(counts))
	for source, count := range counts {
		if float64(count)/float64(total) < s.OtherShare {
			folded["Other"] += count
			continue
		}
		folded[source] = count
	}
	return toSourceCounts(folded)
}

// RecentBySource counts documents whose authoritative date falls inside the
// recent window ending at now. Unresolved documents cannot be window-tested
// and are left out.
func (s Settings) RecentBySource(docs []ResolvedDocument, now time.Time) []SourceCount {
	cutoff := now.AddDate(0, 0, -s.RecentWindowDays)
	counts := make(map[string]int)
	for _, doc := range docs {
		if !doc.Resolution.Resolved {
			continue
		}
		if doc.Resolution.Date.Before(cutoff) || doc.Resolution.Date.After(now) {
			continue
		}
		counts[s.GroupSource(doc.Source)]++
	}
	return toSourceCounts(counts)
}

// MonthlyBySource buckets documents into month × source for the reporting
// year. Suspect and unresolved dates are excluded: this feeds trend charts.
func (s Settings) MonthlyBySource(docs []ResolvedDocument, year int) []MonthlyCount {
	counts := make(map[string]map[Month]int)
	for _, doc := range docs {
		res := doc.Resolution
		if !res.Resolved || res.Suspect || res.Date.Year() != year {
			continue
		}
		source := s.GroupSource(doc.Source)
		if counts[source] == nil {
			counts[source] = make(map[Month]int)
		}
		counts[source][MonthOf(res.Date)]++
	}

	var out []MonthlyCount
	for source, byMonth := range counts {
		for month, count := range byMonth {
			out = append(out, MonthlyCount{Source: source, Month: month, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Month.Year != out[j].Month.Year {
			return out[i].Month.Year < out[j].Month.Year
		}
		return out[i].Month.Month < out[j].Month.Month
	})
	return out
}

// CountByType counts every document per document type, unresolved included.
func (s Settings) CountByType(docs []ResolvedDocument) []TypeCount {
	counts := make(map[string]int)
	for _, doc := range docs {
		counts[doc.Type]++
	}
	out := make([]TypeCount, 0, len(counts))
	for docType, count := range counts {
		out = append(out, TypeCount{Type: docType, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// DeletionCandidates counts, per grouped source, documents older than the
// source's retention period. Unresolved documents have no age and are not
// candidates.
func (s Settings) DeletionCandidates(docs []ResolvedDocument, now time.Time) []SourceCount {
	counts := make(map[string]int)
	for _, doc := range docs {
		if !doc.Resolution.Resolved {
			continue
		}
		cutoff := now.AddDate(-s.retentionYears(doc.Source), 0, 0)
		if doc.Resolution.Date.Before(cutoff) {
			counts[s.GroupSource(doc.Source)]++
		}
	}
	return toSourceCounts(counts)
}

// toSourceCounts materializes a count map as a sorted slice with shares.
// Sorted by count descending, then source name, so output is deterministic.
func toSourceCounts(counts map[string]int) []SourceCount {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]SourceCount, 0, len(counts))
	for source, count := range counts {
		out = append(out, SourceCount{Source: source, Count: count, Share: NewRatio(count, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	return out
}
