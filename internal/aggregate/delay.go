package aggregate

import (
	"math"
	"sort"
	"time"
)

// DelayStats summarizes the lag between document creation and modification
// over the trailing delay window. Negative delays are real signal: they mean
// a document was modified before its recorded creation date.
type DelayStats struct {
	Count   int     `json:"count"`
	MinDays float64 `json:"min_days"`
	Q1Days  float64 `json:"q1_days"`
	// Median and quartiles use linear interpolation between closest ranks.
	MedianDays float64 `json:"median_days"`
	Q3Days     float64 `json:"q3_days"`
	MaxDays    float64 `json:"max_days"`
	AvgDays    float64 `json:"avg_days"`
	// MinDocument and MaxDocument identify the extreme examples for the
	// operator to inspect.
	MinDocument DelayExample `json:"min_document"`
	MaxDocument DelayExample `json:"max_document"`
}

// DelayExample is one extreme-delay document reference.
type DelayExample struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Source    string  `json:"source"`
	DelayDays float64 `json:"delay_days"`
}

// DelayStatistics computes DelayStats over documents modified inside the
// trailing window, skipping excluded sources and documents missing either
// date. Returns ok=false when no document qualifies.
func (s Settings) DelayStatistics(docs []ResolvedDocument, now time.Time) (DelayStats, bool) {
	windowStart := now.AddDate(0, -s.DelayWindowMonths, 0)

	type sample struct {
		days float64
		doc  ResolvedDocument
	}
	var samples []sample
	for _, doc := range docs {
		if doc.CreatedAt == nil || doc.ModifiedAt == nil {
			continue
		}
		if s.delayExcluded(doc.Source) {
			continue
		}
		if doc.ModifiedAt.Before(windowStart) || doc.ModifiedAt.After(now) {
			continue
		}
		days := doc.ModifiedAt.Sub(*doc.CreatedAt).Hours() / 24
		samples = append(samples, sample{days: days, doc: doc})
	}
	if len(samples) == 0 {
		return DelayStats{}, false
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].days != samples[j].days {
			return samples[i].days < samples[j].days
		}
		return samples[i].doc.ID < samples[j].doc.ID
	})

	delays := make([]float64, len(samples))
	sum := 0.0
	for i, smp := range samples {
		delays[i] = smp.days
		sum += smp.days
	}

	minDoc := samples[0]
	maxDoc := samples[len(samples)-1]
	return DelayStats{
		Count:      len(delays),
		MinDays:    delays[0],
		Q1Days:     percentile(delays, 0.25),
		MedianDays: percentile(delays, 0.5),
		Q3Days:     percentile(delays, 0.75),
		MaxDays:    delays[len(delays)-1],
		AvgDays:    sum / float64(len(delays)),
		MinDocument: DelayExample{
			ID:        minDoc.doc.ID,
			Title:     minDoc.doc.Title,
			Source:    minDoc.doc.Source,
			DelayDays: minDoc.days,
		},
		MaxDocument: DelayExample{
			ID:        maxDoc.doc.ID,
			Title:     maxDoc.doc.Title,
			Source:    maxDoc.doc.Source,
			DelayDays: maxDoc.days,
		},
	}, true
}

// percentile interpolates linearly between closest ranks over sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
