package report

import (
	"fmt"
	"sort"
	"time"

	"dwhmon/internal/aggregate"
	"dwhmon/internal/reconcile"
)

// Aggregates bundles every computed slice the assembler turns into sheets.
type Aggregates struct {
	Dedup              reconcile.DedupReport
	TotalDocuments     int
	Distribution       []aggregate.SourceCount
	Recent             []aggregate.SourceCount
	Monthly            []aggregate.MonthlyCount
	Types              []aggregate.TypeCount
	TopUsers           []aggregate.UserCount
	TopUsersYear       []aggregate.UserCount
	Archive            []aggregate.ArchiveAge
	DeletionCandidates []aggregate.SourceCount
	Delay              aggregate.DelayStats
	DelayOK            bool
	UnresolvedDocs     int
	SuspectDates       int
	SkippedUsers       int
}

// Assemble lays the aggregates out as the fixed sheet sequence. Every sheet
// is always emitted with its full column set, even when it carries no rows,
// so consumers can address sheets positionally across runs.
func Assemble(agg Aggregates, generatedAt time.Time) []Sheet {
	sheets := make([]Sheet, 0, len(SheetOrder))
	sheets = append(sheets,
		summarySheet(agg, generatedAt),
		documentMetricsSheet(agg),
		sourceCountSheet(SheetDocumentCounts, agg.Distribution),
		sourceCountSheet(SheetRecentDocuments, agg.Recent),
		monthlyTrendSheet(agg.Monthly),
		userSheet(SheetTopUsers, agg.TopUsers),
		userSheet(SheetTopUsersCurrentYear, agg.TopUsersYear),
		archiveSheet(agg),
		dataQualitySheet(agg),
	)
	return sheets
}

func summarySheet(agg Aggregates, generatedAt time.Time) Sheet {
	rows := [][]any{
		{"Generated at", generatedAt.UTC().Format(time.RFC3339)},
		{"Canonical patients", fmt.Sprintf("%d", agg.Dedup.Canonical)},
		{"Total documents", fmt.Sprintf("%d", agg.TotalDocuments)},
		{"Document sources", fmt.Sprintf("%d", len(agg.Distribution))},
		{"Document types", fmt.Sprintf("%d", len(agg.Types))},
	}
	return Sheet{
		Name:    SheetSummary,
		Version: 1,
		Columns: []Column{
			{Name: "indicator", Type: TypeString},
			{Name: "value", Type: TypeString},
		},
		Rows: rows,
	}
}

func documentMetricsSheet(agg Aggregates) Sheet {
	sheet := Sheet{
		Name:    SheetDocumentMetrics,
		Version: 1,
		Columns: []Column{
			{Name: "statistic", Type: TypeString},
			{Name: "delay_days", Type: TypeFloat},
			{Name: "example_document", Type: TypeString},
		},
		Rows: [][]any{},
	}
	if !agg.DelayOK {
		return sheet
	}
	d := agg.Delay
	sheet.Rows = [][]any{
		{"minimum", d.MinDays, delayExample(d.MinDocument)},
		{"first_quartile", d.Q1Days, ""},
		{"median", d.MedianDays, ""},
		{"third_quartile", d.Q3Days, ""},
		{"maximum", d.MaxDays, delayExample(d.MaxDocument)},
		{"average", d.AvgDays, ""},
	}
	return sheet
}

func delayExample(ex aggregate.DelayExample) string {
	return fmt.Sprintf("%s (%s, %s)", ex.Title, ex.ID, ex.Source)
}

func sourceCountSheet(name string, counts []aggregate.SourceCount) Sheet {
	rows := make([][]any, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []any{c.Source, c.Count, c.Share.String()})
	}
	return Sheet{
		Name:    name,
		Version: 1,
		Columns: []Column{
			{Name: "source", Type: TypeString},
			{Name: "count", Type: TypeInt},
			{Name: "share", Type: TypePercent},
		},
		Rows: rows,
	}
}

func monthlyTrendSheet(counts []aggregate.MonthlyCount) Sheet {
	rows := make([][]any, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []any{c.Month.String(), c.Source, c.Count})
	}
	return Sheet{
		Name:    SheetMonthlyTrend,
		Version: 1,
		Columns: []Column{
			{Name: "month", Type: TypeMonth},
			{Name: "source", Type: TypeString},
			{Name: "count", Type: TypeInt},
		},
		Rows: rows,
	}
}

func userSheet(name string, counts []aggregate.UserCount) Sheet {
	rows := make([][]any, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []any{c.User, c.Count})
	}
	return Sheet{
		Name:    name,
		Version: 1,
		Columns: []Column{
			{Name: "user", Type: TypeString},
			{Name: "query_count", Type: TypeInt},
		},
		Rows: rows,
	}
}

func archiveSheet(agg Aggregates) Sheet {
	deletions := make(map[string]int, len(agg.DeletionCandidates))
	for _, c := range agg.DeletionCandidates {
		deletions[c.Source] = c.Count
	}
	rows := make([][]any, 0, len(agg.Archive))
	for _, a := range agg.Archive {
		rows = append(rows, []any{a.Source, a.AgeYears, a.OverThreshold, deletions[a.Source], a.Status})
	}
	return Sheet{
		Name:    SheetArchiveStatus,
		Version: 1,
		Columns: []Column{
			{Name: "source", Type: TypeString},
			{Name: "age_years", Type: TypeFloat},
			{Name: "over_threshold", Type: TypeBool},
			{Name: "deletion_candidates", Type: TypeInt},
			{Name: "status", Type: TypeString},
		},
		Rows: rows,
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dataQualitySheet(agg Aggregates) Sheet {
	unresolvedShare := aggregate.NewRatio(agg.UnresolvedDocs, agg.TotalDocuments)
	suspectShare := aggregate.NewRatio(agg.SuspectDates, agg.TotalDocuments)
	rows := [][]any{
		{"patients_input", fmt.Sprintf("%d", agg.Dedup.Input)},
		{"patients_skipped_malformed", fmt.Sprintf("%d", agg.Dedup.Skipped)},
		{"patients_test_excluded", fmt.Sprintf("%d", agg.Dedup.TestExcluded)},
		{"patients_duplicate_excluded", fmt.Sprintf("%d", agg.Dedup.DuplicateExcluded)},
		{"patients_placeholders_kept", fmt.Sprintf("%d", agg.Dedup.PlaceholdersKept)},
	}
	for _, category := range sortedKeys(agg.Dedup.KeptByCategory) {
		rows = append(rows, []any{
			"patients_kept_" + category,
			fmt.Sprintf("%d", agg.Dedup.KeptByCategory[category]),
		})
	}
	rows = append(rows, [][]any{
		{"identifier_conflicts", fmt.Sprintf("%d", len(agg.Dedup.Conflicts))},
		{"documents_unresolved_date", fmt.Sprintf("%d", agg.UnresolvedDocs)},
		{"documents_unresolved_share", unresolvedShare.String()},
		{"documents_suspect_date", fmt.Sprintf("%d", agg.SuspectDates)},
		{"documents_suspect_share", suspectShare.String()},
	}...)
	return Sheet{
		Name:    SheetDataQuality,
		Version: 1,
		Columns: []Column{
			{Name: "check", Type: TypeString},
			{Name: "value", Type: TypeString},
		},
		Rows: rows,
	}
}
