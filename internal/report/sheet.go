// Package report runs the full reporting pipeline and arranges aggregates
// into a stable, ordered sheet structure for the dashboard and exporters.
package report

// ColumnType declares how a column's cells should be rendered downstream.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInt     ColumnType = "int"
	TypeFloat   ColumnType = "float"
	TypePercent ColumnType = "percent"
	TypeBool    ColumnType = "bool"
	TypeMonth   ColumnType = "month"
)

// Column is one declared column of a sheet schema.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Sheet is one named, versioned section of the assembled report. The column
// set is fixed per sheet version regardless of row count; consumers rely on
// every declared sheet being present, empty or not.
type Sheet struct {
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Sheet names, in their fixed output order. Reordering or renaming is a
// breaking change for every downstream consumer.
const (
	SheetSummary             = "Summary"
	SheetDocumentMetrics     = "Document Metrics"
	SheetDocumentCounts      = "Document Counts"
	SheetRecentDocuments     = "Recent Documents"
	SheetMonthlyTrend        = "Monthly Trend"
	SheetTopUsers            = "Top Users"
	SheetTopUsersCurrentYear = "Top Users Current Year"
	SheetArchiveStatus       = "Archive Status"
	SheetDataQuality         = "Data Quality Checks"
)

// SheetOrder is the declared output order of all sheets.
var SheetOrder = []string{
	SheetSummary,
	SheetDocumentMetrics,
	SheetDocumentCounts,
	SheetRecentDocuments,
	SheetMonthlyTrend,
	SheetTopUsers,
	SheetTopUsersCurrentYear,
	SheetArchiveStatus,
	SheetDataQuality,
}
