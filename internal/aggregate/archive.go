package aggregate

import (
	"sort"
	"time"

	"dwhmon/internal/extract"
)

// ArchiveAge is one source's archive age at report time.
type ArchiveAge struct {
	Source        string  `json:"source"`
	AgeYears      float64 `json:"age_years"`
	OverThreshold bool    `json:"over_threshold"`
	Status        string  `json:"status"`
}

// ArchiveStatus computes each source's archive age relative to now. Age is
// recomputed every run, never stored. Raw sources that group into the same
// family merge into one row carrying the family's oldest document.
func (s Settings) ArchiveStatus(archives []extract.ArchiveRecord, now time.Time) []ArchiveAge {
	merged := make(map[string]ArchiveAge, len(archives))
	for _, a := range archives {
		source := s.GroupSource(a.Source)
		age := a.AgeYears(now)
		if existing, ok := merged[source]; ok && existing.AgeYears >= age {
			continue
		}
		merged[source] = ArchiveAge{
			Source:        source,
			AgeYears:      age,
			OverThreshold: age > float64(s.ArchiveThresholdYears),
			Status:        a.Status,
		}
	}
	out := make([]ArchiveAge, 0, len(merged))
	for _, a := range merged {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgeYears != out[j].AgeYears {
			return out[i].AgeYears > out[j].AgeYears
		}
		return out[i].Source < out[j].Source
	})
	return out
}
